package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/ports/repository"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore keeps per-user conversational state in Redis with a TTL, so
// an abandoned flow falls back to Idle on its own.
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) key(tgID int64) string {
	return fmt.Sprintf("conv_state:%d", tgID)
}

func (s *SessionStore) Save(ctx context.Context, tgID int64, sess *repository.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(tgID), data, s.ttl)
}

func (s *SessionStore) Load(ctx context.Context, tgID int64) (*repository.Session, error) {
	data, err := s.client.Get(ctx, s.key(tgID))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var sess repository.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) Clear(ctx context.Context, tgID int64) error {
	return s.client.Del(ctx, s.key(tgID))
}
