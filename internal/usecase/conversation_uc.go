// File: internal/usecase/conversation_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/repository"
)

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

// ConversationUseCase drives the per-user photo -> style -> transform state
// machine. Events for one user are already serialized by the transport layer,
// so every method is a plain load -> guard -> save over the session store.
// Guard failures are user-facing warnings, never crashes.
type ConversationUseCase interface {
	// State returns the current state, Idle when no session exists.
	State(ctx context.Context, tgID int64) (model.ConversationState, error)
	// Reset clears all session data and returns the user to Idle.
	Reset(ctx context.Context, tgID int64) error
	// BeginTransform moves Idle -> WaitingForPhoto when balance allows.
	BeginTransform(ctx context.Context, tgID int64, balance int) error
	// PhotoReceived stores the photo handle and moves to ChoosingStyle.
	// Balance is re-checked at receipt time; it may have changed since entry.
	PhotoReceived(ctx context.Context, tgID int64, photoRef string, balance int) error
	// StyleContext validates that a style selection is currently legal and
	// returns the pending photo handle for the transform.
	StyleContext(ctx context.Context, tgID int64) (photoRef string, err error)
	// RequestNewPhoto clears the pending photo and waits for a fresh upload.
	RequestNewPhoto(ctx context.Context, tgID int64) error
	// AwaitPayment parks the conversation while a purchase is outstanding.
	AwaitPayment(ctx context.Context, tgID int64) error
}

type conversationUC struct {
	sessions repository.SessionStore
	log      *zerolog.Logger
}

func NewConversationUseCase(sessions repository.SessionStore, logger *zerolog.Logger) *conversationUC {
	return &conversationUC{sessions: sessions, log: logger}
}

func (c *conversationUC) load(ctx context.Context, tgID int64) (*repository.Session, error) {
	sess, err := c.sessions.Load(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &repository.Session{State: model.StateIdle}, nil
		}
		return nil, err
	}
	if !sess.State.Valid() {
		// A stale or corrupted session falls back to Idle rather than wedging the user.
		return &repository.Session{State: model.StateIdle}, nil
	}
	return sess, nil
}

func (c *conversationUC) State(ctx context.Context, tgID int64) (model.ConversationState, error) {
	sess, err := c.load(ctx, tgID)
	if err != nil {
		return model.StateIdle, err
	}
	return sess.State, nil
}

func (c *conversationUC) Reset(ctx context.Context, tgID int64) error {
	return c.sessions.Clear(ctx, tgID)
}

func (c *conversationUC) BeginTransform(ctx context.Context, tgID int64, balance int) error {
	if balance <= 0 {
		return domain.ErrInsufficientTokens
	}
	return c.sessions.Save(ctx, tgID, &repository.Session{State: model.StateWaitingForPhoto})
}

func (c *conversationUC) PhotoReceived(ctx context.Context, tgID int64, photoRef string, balance int) error {
	sess, err := c.load(ctx, tgID)
	if err != nil {
		return err
	}
	if sess.State != model.StateWaitingForPhoto {
		return domain.ErrInvalidState
	}
	if balance <= 0 {
		// Stay in WaitingForPhoto; the user can top up and resend.
		return domain.ErrInsufficientTokens
	}
	if photoRef == "" {
		return domain.ErrInvalidArgument
	}
	return c.sessions.Save(ctx, tgID, &repository.Session{
		State:        model.StateChoosingStyle,
		PendingPhoto: photoRef,
	})
}

func (c *conversationUC) StyleContext(ctx context.Context, tgID int64) (string, error) {
	sess, err := c.load(ctx, tgID)
	if err != nil {
		return "", err
	}
	if sess.State != model.StateChoosingStyle {
		return "", domain.ErrInvalidState
	}
	if sess.PendingPhoto == "" {
		return "", domain.ErrNoPendingPhoto
	}
	return sess.PendingPhoto, nil
}

func (c *conversationUC) RequestNewPhoto(ctx context.Context, tgID int64) error {
	return c.sessions.Save(ctx, tgID, &repository.Session{State: model.StateWaitingForPhoto})
}

func (c *conversationUC) AwaitPayment(ctx context.Context, tgID int64) error {
	return c.sessions.Save(ctx, tgID, &repository.Session{State: model.StateWaitingForPayment})
}
