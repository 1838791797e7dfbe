package ai

import (
	"WickStudio/internal/config"
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// New создаёт клиента выбранного в конфигурации бэкенда.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (ImageClient, error) {
	switch cfg.ImageBackend {
	case config.BackendGemini:
		client, err := NewGeminiClient(ctx, cfg.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendVertex:
		client, err := NewVertexClient(ctx, cfg.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendOpenAI:
		opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey)}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		oClient := openai.NewClient(opts...)
		return NewOpenAIClient(&oClient, logger), nil
	case config.BackendStub:
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown image backend %q", cfg.ImageBackend)
	}
}

// ModelFor возвращает идентификатор модели для выбранного бэкенда.
func ModelFor(cfg *config.Config) string {
	switch cfg.ImageBackend {
	case config.BackendOpenAI:
		return cfg.OpenAI.Model
	case config.BackendStub:
		return "stub"
	default:
		return cfg.Gemini.Model
	}
}
