package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// OpenAIClient отправляет фото и инструкцию в OpenAI Images (edits).
type OpenAIClient struct {
	client *openai.Client
	logger *zap.SugaredLogger
}

func NewOpenAIClient(client *openai.Client, logger *zap.SugaredLogger) *OpenAIClient {
	return &OpenAIClient{client: client, logger: logger}
}

var _ ImageClient = (*OpenAIClient)(nil)

// GenerateImage превращает каждый элемент data[] ответа в отдельную часть, порядок сохраняется.
func (c *OpenAIClient) GenerateImage(ctx context.Context, req ImageRequest) ([]Part, error) {
	params := openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(req.Image), "photo"+extensionFor(req.MimeType), req.MimeType),
		},
		Prompt: req.Prompt,
		Model:  openai.ImageModel(req.Model),
		Size:   sizeForAspect(req.AspectRatio),
		N:      openai.Int(1),
	}

	start := time.Now()
	c.logger.Infow("Запрос в OpenAI Images...", "model", req.Model)
	resp, err := c.client.Images.Edit(ctx, params)
	if err != nil {
		return nil, err
	}
	c.logger.Infow("Ответ OpenAI получен", "duration", time.Since(start).String(), "items", len(resp.Data))

	out := make([]Part, 0, len(resp.Data))
	for i, img := range resp.Data {
		if img.B64JSON == "" {
			out = append(out, Part{Text: img.RevisedPrompt})
			continue
		}
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai: decode data[%d]: %w", i, err)
		}
		out = append(out, Part{InlineData: &Blob{MIMEType: "image/png", Data: data}})
	}
	return out, nil
}

// sizeForAspect подбирает ближайший поддерживаемый размер. 3:4 → портрет 1024x1536.
func sizeForAspect(aspect string) openai.ImageEditParamsSize {
	switch aspect {
	case "3:4", "2:3", "9:16":
		return openai.ImageEditParamsSize1024x1536
	case "4:3", "3:2", "16:9":
		return openai.ImageEditParamsSize1536x1024
	case "1:1":
		return openai.ImageEditParamsSize1024x1024
	default:
		return openai.ImageEditParamsSizeAuto
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
