// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/ports/repository"
	"telegram-style-bot/internal/infra/logging"
	"telegram-style-bot/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase owns every token balance mutation. Debit and Credit are
// single atomic read-modify-writes against the durable store; callers decide
// whether to retry or surface an error, the ledger never retries internally.
type LedgerUseCase interface {
	Balance(ctx context.Context, tgID int64) (int, error)
	Debit(ctx context.Context, tgID int64, amount int) (int, error)
	Credit(ctx context.Context, tgID int64, amount int) (int, error)
}

type ledgerUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewLedgerUseCase(users repository.UserRepository, logger *zerolog.Logger) *ledgerUC {
	return &ledgerUC{users: users, log: logger}
}

func (l *ledgerUC) Balance(ctx context.Context, tgID int64) (int, error) {
	u, err := l.users.FindByTelegramID(ctx, tgID)
	if err != nil {
		return 0, err
	}
	return u.TokenCount, nil
}

func (l *ledgerUC) Debit(ctx context.Context, tgID int64, amount int) (int, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Debit")()
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	balance, err := l.users.AdjustTokens(ctx, tgID, -amount)
	switch {
	case err == nil:
		metrics.IncLedgerOp("debit", "ok")
	case errors.Is(err, domain.ErrInsufficientTokens):
		metrics.IncLedgerOp("debit", "insufficient")
	default:
		metrics.IncLedgerOp("debit", "error")
	}
	return balance, err
}

func (l *ledgerUC) Credit(ctx context.Context, tgID int64, amount int) (int, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Credit")()
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	balance, err := l.users.AdjustTokens(ctx, tgID, amount)
	if err != nil {
		metrics.IncLedgerOp("credit", "error")
		return 0, err
	}
	metrics.IncLedgerOp("credit", "ok")
	return balance, nil
}
