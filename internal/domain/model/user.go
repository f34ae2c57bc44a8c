package model

import (
	"time"

	"telegram-style-bot/internal/domain"
)

// User is a domain entity representing a Telegram user in our system.
// The Telegram ID doubles as the primary identity; the token balance is
// authoritative only in the durable store, never cached here across events.
type User struct {
	TelegramID   int64
	Username     string
	TokenCount   int
	PhoneNumber  string
	RegisteredAt time.Time
	LastActiveAt time.Time
	IsStaff      bool
	IsSuperuser  bool
}

func NewUser(tgID int64, username string, welcomeTokens int) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if welcomeTokens < 0 {
		welcomeTokens = 0
	}
	now := time.Now()
	return &User{
		TelegramID:   tgID,
		Username:     username,
		TokenCount:   welcomeTokens,
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.TelegramID == 0 }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }
