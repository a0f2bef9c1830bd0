package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a KV backend when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// KV is a minimal key/value backend holding whole serialized records.
// Implementations must be safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
