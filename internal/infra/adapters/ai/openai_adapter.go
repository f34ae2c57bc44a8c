// File: internal/infra/adapters/ai/openai_adapter.go
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/adapter"
)

var _ adapter.ImageTransformAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter is the fallback image backend, backed by gpt-image-1 edits.
type OpenAIAdapter struct {
	client openai.Client
	model  openai.ImageModel
}

func NewOpenAIAdapter(apiKey, baseURL string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{
		client: openai.NewClient(opts...),
		model:  openai.ImageModelGPTImage1,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) Transform(ctx context.Context, image []byte, styleID, customPrompt string) ([]byte, error) {
	prompt := customPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = model.StylePrompt(styleID)
	}

	res, err := o.client.Images.Edit(ctx, openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(image), "photo.png", "image/png"),
		},
		Prompt: prompt,
		Model:  o.model,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Data) == 0 || res.Data[0].B64JSON == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(res.Data[0].B64JSON)
}
