package service

import (
	"sync"

	"github.com/prn-tf/phonebook/internal/domain"
)

// Session is one authenticated Owner. The Directory has no synchronization of
// its own, so every facade call on a Session holds its mutex.
type Session struct {
	mu     sync.Mutex
	owner  *domain.Owner
	closed bool
}

// NewSession wraps an Owner already loaded from or written to storage.
func NewSession(owner *domain.Owner) *Session {
	return &Session{owner: owner}
}

// Owner returns the session's Owner. Callers must not mutate its Directory
// directly.
func (s *Session) Owner() *domain.Owner {
	return s.owner
}

// Closed reports whether the owner was deleted through this session.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// acquire locks the session and returns its owner. The caller must call
// release when acquire succeeds.
func (s *Session) acquire() (*domain.Owner, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	return s.owner, nil
}

func (s *Session) release() {
	s.mu.Unlock()
}
