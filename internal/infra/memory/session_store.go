package memory

import (
	"context"
	"sync"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/ports/repository"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore is the in-process SessionStore implementation, used in dev
// mode and unit tests. State is lost on restart, which matches the session
// payload's transient nature.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]repository.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]repository.Session)}
}

func (s *SessionStore) Load(ctx context.Context, tgID int64) (*repository.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := sess
	return &cp, nil
}

func (s *SessionStore) Save(ctx context.Context, tgID int64, sess *repository.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[tgID] = *sess
	return nil
}

func (s *SessionStore) Clear(ctx context.Context, tgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tgID)
	return nil
}
