package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores each record as a plain Redis string.
type RedisKV struct {
	Redis *redis.Client
}

// NewRedisKV wraps a connected client. The caller is expected to have pinged it.
func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{Redis: rdb}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := r.Redis.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.Redis.Close()
}
