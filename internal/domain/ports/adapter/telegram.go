// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// TelegramBotAdapter is the outbound chat port. Components that only need to
// notify a user (the payment tracker, workers) depend on this, never on the
// concrete bot.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, telegramID int64, text string) error
	SendButtons(ctx context.Context, telegramID int64, text string, rows [][]InlineButton) error
	SendPhoto(ctx context.Context, telegramID int64, image []byte, caption string, rows [][]InlineButton) error
}

// PhotoFetcher resolves an opaque photo handle into raw bytes.
type PhotoFetcher interface {
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)
}
