// Package session keeps the sessions of logged in users. A session maps an opaque token,
// handed to the client at login, to the execution context of the authenticated user.
// Sessions do not expire; they live until logout or until the process exits.
package session

import (
	"sync"

	"github.com/tansive/ideconnector/internal/common/apperrors"
	"github.com/tansive/ideconnector/internal/common/uuid"
	"github.com/tansive/ideconnector/internal/connector/cms"
)

// Store is the registry of active sessions. Implementations are safe for concurrent use.
type Store interface {
	// Create registers c under a new token and returns the token.
	Create(c cms.Context) (string, apperrors.Error)

	// Lookup returns the context registered under token.
	Lookup(token string) (cms.Context, bool)

	// Destroy removes the session. Unknown tokens are ignored.
	Destroy(token string)

	// Len returns the number of active sessions.
	Len() int
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]cms.Context
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]cms.Context)}
}

func (s *MemoryStore) Create(c cms.Context) (string, apperrors.Error) {
	if c == nil {
		return "", ErrInvalidSession.Msg("no execution context")
	}
	token, err := uuid.NewToken()
	if err != nil {
		return "", ErrSessionError.MsgErr("unable to generate a session token", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[token]; exists {
		return "", ErrAlreadyExists
	}
	s.sessions[token] = c
	return token, nil
}

func (s *MemoryStore) Lookup(token string) (cms.Context, bool) {
	if token == "" {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[token]
	return c, ok
}

func (s *MemoryStore) Destroy(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ Store = (*MemoryStore)(nil)
