// Package assistant wraps a remote generative-AI chat behind a lazy stream of reply fragments.
//
// A reply is an iter.Seq2[string, error]: every successful step yields a text
// fragment with a nil error; a failure yields a single non-nil error (usually a
// *StreamError) and ends the sequence. Fragments are concatenated in arrival
// order to form the reply.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"
)

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("assistant: API key not configured")
	// ErrStreamConsumed is yielded when a reply stream is iterated a second time.
	ErrStreamConsumed = errors.New("assistant: reply stream already consumed")
)

// StreamError is a failure in the middle of a reply. Partial holds the text
// received before the failure.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Session is one conversation context with the remote model.
type Session interface {
	// Stream sends userText as the next turn and returns the reply fragments.
	Stream(ctx context.Context, userText string) iter.Seq2[string, error]
}

// Provider opens new sessions.
type Provider interface {
	NewSession(ctx context.Context) (Session, error)
}

// Collect drains a reply stream and returns the concatenated text. On failure
// it returns the text received so far together with the error.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for fragment, err := range seq {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}

// Once wraps seq so it can only be ranged over once; later iterations yield ErrStreamConsumed.
func Once(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}
