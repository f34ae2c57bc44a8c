package repository

import (
	"context"

	"telegram-style-bot/internal/domain/model"
)

// Session holds a user's progress through the photo -> style flow.
// PendingPhoto is only meaningful while State is choosing_style.
type Session struct {
	State        model.ConversationState `json:"state"`
	PendingPhoto string                  `json:"pending_photo,omitempty"`
}

// SessionStore is the port for per-user conversational state, keyed by
// Telegram ID. Load returns domain.ErrNotFound when no session exists;
// callers treat that as Idle.
type SessionStore interface {
	Load(ctx context.Context, tgID int64) (*Session, error)
	Save(ctx context.Context, tgID int64, s *Session) error
	Clear(ctx context.Context, tgID int64) error
}
