package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Save(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (
  telegram_id, username, token_count, phone_number, registered_at, last_active_at, is_staff, is_superuser
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (telegram_id) DO UPDATE SET
  username=$2, last_active_at=$6, is_staff=$7, is_superuser=$8;
`
	_, err := r.pool.Exec(ctx, q, u.TelegramID, u.Username, u.TokenCount, nullable(u.PhoneNumber),
		u.RegisteredAt, u.LastActiveAt, u.IsStaff, u.IsSuperuser)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	const q = `
SELECT telegram_id, username, token_count, COALESCE(phone_number, ''), registered_at, last_active_at, is_staff, is_superuser
  FROM users WHERE telegram_id=$1;
`
	var u model.User
	err := r.pool.QueryRow(ctx, q, tgID).Scan(&u.TelegramID, &u.Username, &u.TokenCount, &u.PhoneNumber,
		&u.RegisteredAt, &u.LastActiveAt, &u.IsStaff, &u.IsSuperuser)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// AdjustTokens is the ledger's single RMW point. The balance guard lives in
// the WHERE clause so two concurrent debits can never interleave past zero.
func (r *PostgresUserRepo) AdjustTokens(ctx context.Context, tgID int64, delta int) (int, error) {
	const q = `
UPDATE users SET token_count = token_count + $2, last_active_at = now()
 WHERE telegram_id = $1 AND token_count + $2 >= 0
 RETURNING token_count;
`
	var balance int
	err := r.pool.QueryRow(ctx, q, tgID, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("adjust tokens: %w", err)
	}
	// No row updated: either the user is missing or the debit would go negative.
	if _, ferr := r.FindByTelegramID(ctx, tgID); ferr != nil {
		return 0, ferr
	}
	return 0, domain.ErrInsufficientTokens
}

func (r *PostgresUserRepo) UpdatePhoneNumber(ctx context.Context, tgID int64, phone string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET phone_number=$2 WHERE telegram_id=$1;`, tgID, phone)
	if err != nil {
		return fmt.Errorf("update phone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
