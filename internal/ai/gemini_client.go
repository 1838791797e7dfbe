package ai

import (
	"WickStudio/internal/config"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/genai"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GeminiClient отправляет фото и инструкцию в модель изображений Gemini через google.golang.org/genai.
type GeminiClient struct {
	client *genai.Client
	logger *zap.SugaredLogger
}

// NewGeminiClient создаёт клиента Gemini API по ключу.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, logger *zap.SugaredLogger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: empty api key")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, logger: logger}, nil
}

// NewVertexClient создаёт клиента Vertex AI. Авторизация только через ADC (GOOGLE_APPLICATION_CREDENTIALS или metadata).
func NewVertexClient(ctx context.Context, cfg config.GeminiConfig, logger *zap.SugaredLogger) (*GeminiClient, error) {
	httpClient, err := google.DefaultClient(ctx, cloudPlatformScope)
	if err != nil {
		return nil, errors.New("vertex: ADC credentials not found. Set GOOGLE_APPLICATION_CREDENTIALS to a service account JSON or run in GCE/GKE with default credentials")
	}
	cc := &genai.ClientConfig{
		Backend:    genai.BackendVertexAI,
		Project:    cfg.Project,
		Location:   cfg.Location,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("vertex: create client: %w", err)
	}
	return &GeminiClient{client: client, logger: logger}, nil
}

var _ ImageClient = (*GeminiClient)(nil)

// GenerateImage выполняет ровно один вызов generateContent. Разбирается только первый кандидат.
func (c *GeminiClient) GenerateImage(ctx context.Context, req ImageRequest) ([]Part, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(req.Image, req.MimeType),
		genai.NewPartFromText(req.Prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var gc *genai.GenerateContentConfig
	if req.AspectRatio != "" {
		gc = &genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: req.AspectRatio},
		}
	}

	start := time.Now()
	c.logger.Infow("Запрос в Gemini...", "model", req.Model, "imageBytes", len(req.Image))
	res, err := c.client.Models.GenerateContent(ctx, req.Model, contents, gc)
	if err != nil {
		return nil, err
	}
	c.logger.Infow("Ответ Gemini получен", "duration", time.Since(start).String())

	if res == nil || len(res.Candidates) == 0 || res.Candidates[0] == nil || res.Candidates[0].Content == nil {
		return nil, nil
	}

	out := make([]Part, 0, len(res.Candidates[0].Content.Parts))
	for _, p := range res.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		part := Part{Text: p.Text}
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			part.InlineData = &Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
		}
		out = append(out, part)
	}
	return out, nil
}
