package adapter

import "context"

// ImageTransformAdapter is the port for the image generation backend.
// Calls may take tens of seconds and are treated as unreliable; the caller
// owns the single refund-on-failure path, the adapter never retries.
type ImageTransformAdapter interface {
	Name() string

	// Transform restyles the image. customPrompt overrides the catalog prompt
	// when non-empty. An empty result is returned as domain.ErrEmptyTransform.
	Transform(ctx context.Context, image []byte, styleID, customPrompt string) ([]byte, error)
}
