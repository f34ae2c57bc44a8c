package ai

import (
	"context"
	"log"
	"time"

	"telegram-style-bot/internal/domain/ports/adapter"
)

var _ adapter.ImageTransformAdapter = (*NoopImageAdapter)(nil)

// NoopImageAdapter implements adapter.ImageTransformAdapter for local/dev
// runs. It echoes the input image back instead of calling a real backend.
type NoopImageAdapter struct{}

// NewNoopImageAdapter constructs the noop adapter.
func NewNoopImageAdapter() *NoopImageAdapter {
	return &NoopImageAdapter{}
}

func (a *NoopImageAdapter) Name() string { return "noop" }

// Transform simulates a small processing delay and returns the input bytes.
func (a *NoopImageAdapter) Transform(ctx context.Context, image []byte, styleID, customPrompt string) ([]byte, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	log.Printf("[noop-ai] transform style=%s bytes=%d\n", styleID, len(image))
	return image, nil
}
