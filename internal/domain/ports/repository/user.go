package repository

import (
	"context"

	"telegram-style-bot/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, u *model.User) error
	FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error)

	// AdjustTokens applies delta to the user's balance as a single atomic
	// read-modify-write and returns the new balance. A negative delta that
	// would drive the balance below zero fails with
	// domain.ErrInsufficientTokens and leaves the stored balance untouched.
	AdjustTokens(ctx context.Context, tgID int64, delta int) (int, error)

	UpdatePhoneNumber(ctx context.Context, tgID int64, phone string) error
	CountUsers(ctx context.Context) (int, error)
}
