package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/repository"
	"telegram-style-bot/internal/infra/logging"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user-related operations used by bot flows.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, tgID int64, username string) (*model.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	UpdatePhoneNumber(ctx context.Context, tgID int64, phone string) error
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users         repository.UserRepository
	welcomeTokens int
	log           *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, welcomeTokens int, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, welcomeTokens: welcomeTokens, log: logger}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, tgID int64, username string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	usr, err := u.users.FindByTelegramID(ctx, tgID)
	if err == nil {
		if username != "" && usr.Username != username {
			usr.Username = username
		}
		usr.Touch()
		if err := u.users.Save(ctx, usr); err != nil {
			u.log.Error().Err(err).Int64("tg_id", tgID).Msg("failed to update user")
			return nil, err
		}
		return usr, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	nu, err := model.NewUser(tgID, username, u.welcomeTokens)
	if err != nil {
		return nil, err
	}
	if err := u.users.Save(ctx, nu); err != nil {
		// Lost a concurrent registration race; the row is there now.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return u.users.FindByTelegramID(ctx, tgID)
		}
		return nil, err
	}
	u.log.Info().Int64("tg_id", tgID).Str("username", username).Msg("registered new user")
	return nu, nil
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	return u.users.FindByTelegramID(ctx, tgID)
}

func (u *userUC) UpdatePhoneNumber(ctx context.Context, tgID int64, phone string) error {
	if phone == "" {
		return domain.ErrInvalidArgument
	}
	return u.users.UpdatePhoneNumber(ctx, tgID, phone)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	return u.users.CountUsers(ctx)
}
