// File: internal/usecase/transform_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/ports/adapter"
	"telegram-style-bot/internal/infra/logging"
	"telegram-style-bot/internal/infra/metrics"
)

// TransformCost is what one generation debits from the user.
const TransformCost = 1

// Compile-time check
var _ TransformUseCase = (*transformUC)(nil)

// TransformResult carries a finished generation back to the transport layer.
type TransformResult struct {
	Image      []byte
	StyleID    string
	NewBalance int
}

// TransformUseCase sequences debit -> external transform -> result, crediting
// the token back on any transform failure. The refund happens before the
// caller gets to notify the user, never after.
type TransformUseCase interface {
	Execute(ctx context.Context, tgID int64, photoRef, styleID string) (*TransformResult, error)
}

type transformUC struct {
	ledger LedgerUseCase
	photos adapter.PhotoFetcher
	images adapter.ImageTransformAdapter
	log    *zerolog.Logger
}

func NewTransformUseCase(ledger LedgerUseCase, photos adapter.PhotoFetcher, images adapter.ImageTransformAdapter, logger *zerolog.Logger) *transformUC {
	return &transformUC{ledger: ledger, photos: photos, images: images, log: logger}
}

func (t *transformUC) Execute(ctx context.Context, tgID int64, photoRef, styleID string) (*TransformResult, error) {
	defer logging.TraceDuration(t.log, "TransformUC.Execute")()

	// Balance may have drained since the style menu was shown.
	balance, err := t.ledger.Balance(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if balance < TransformCost {
		return nil, domain.ErrInsufficientTokens
	}

	newBalance, err := t.ledger.Debit(ctx, tgID, TransformCost)
	if err != nil {
		// No transform was attempted, nothing to refund.
		return nil, fmt.Errorf("debit: %w", err)
	}

	image, err := t.transform(ctx, photoRef, styleID)
	if err != nil {
		t.refund(ctx, tgID, styleID, err)
		return nil, fmt.Errorf("transform: %w", err)
	}

	metrics.IncTransform("success", styleID)
	return &TransformResult{Image: image, StyleID: styleID, NewBalance: newBalance}, nil
}

func (t *transformUC) transform(ctx context.Context, photoRef, styleID string) ([]byte, error) {
	data, err := t.photos.DownloadPhoto(ctx, photoRef)
	if err != nil {
		return nil, fmt.Errorf("download photo: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.ErrEmptyTransform
	}

	start := time.Now()
	image, err := t.images.Transform(ctx, data, styleID, "")
	metrics.ObserveTransformDuration(time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, domain.ErrEmptyTransform
	}
	return image, nil
}

// refund credits the debited token back. A failed refund leaves the user
// charged with nothing delivered; that is escalated at error severity and
// surfaced in metrics, not swallowed.
func (t *transformUC) refund(ctx context.Context, tgID int64, styleID string, cause error) {
	if _, err := t.ledger.Credit(ctx, tgID, TransformCost); err != nil {
		metrics.IncTransform("refund_failed", styleID)
		t.log.Error().Err(err).
			Int64("tg_id", tgID).
			Str("style", styleID).
			AnErr("transform_error", cause).
			Msg("refund after failed transform did not apply")
		return
	}
	metrics.IncTransform("failure", styleID)
	t.log.Warn().Err(cause).Int64("tg_id", tgID).Str("style", styleID).Msg("transform failed, token refunded")
}

// IsUserFacing reports whether err should be shown to the user as a warning
// rather than logged as a fault.
func IsUserFacing(err error) bool {
	return errors.Is(err, domain.ErrInsufficientTokens) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrNoPendingPhoto)
}
