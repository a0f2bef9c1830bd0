package assistant

import (
	"context"
	"sync"
)

// Sessions keeps one conversation per user, created on first use.
type Sessions struct {
	Provider Provider

	mu       sync.Mutex
	sessions map[string]Session
}

// NewSessions creates an empty session registry.
func NewSessions(p Provider) *Sessions {
	return &Sessions{Provider: p, sessions: make(map[string]Session)}
}

// Get returns userID's session, opening one if needed.
func (s *Sessions) Get(ctx context.Context, userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess, nil
	}
	if s.Provider == nil {
		return nil, ErrNotConfigured
	}
	sess, err := s.Provider.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	s.sessions[userID] = sess
	return sess, nil
}

// Reset discards userID's conversation and opens a fresh one.
func (s *Sessions) Reset(ctx context.Context, userID string) (Session, error) {
	s.Drop(userID)
	return s.Get(ctx, userID)
}

// Drop forgets userID's conversation, e.g. on logout.
func (s *Sessions) Drop(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}
