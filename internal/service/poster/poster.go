package poster

import (
	"WickStudio/internal/ai"
	"WickStudio/internal/service/image"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	SourceMimeType = "image/jpeg"
	ResultMimeType = "image/png"
	AspectRatio    = "3:4"
)

// Исходы генерации для Recorder.
const (
	OutcomeSuccess        = "success"
	OutcomeNoImage        = "no_image"
	OutcomeTransportError = "transport_error"
	OutcomeInvalidInput   = "invalid_input"
)

// Recorder получает исход и длительность каждого вызова Generate.
type Recorder interface {
	ObserveGeneration(outcome string, took time.Duration)
}

type Service struct {
	client   ai.ImageClient
	model    string
	logger   *zap.SugaredLogger
	recorder Recorder
}

// New создаёт сервис. recorder может быть nil.
func New(client ai.ImageClient, model string, logger *zap.SugaredLogger, recorder Recorder) *Service {
	return &Service{client: client, model: model, logger: logger, recorder: recorder}
}

// Generate отправляет фото и инструкцию модели ровно одним вызовом и возвращает первую картинку из ответа
// в виде data URL "data:image/png;base64,...". Повторов нет.
func (s *Service) Generate(ctx context.Context, source, prompt string) (string, error) {
	start := time.Now()
	result, outcome, err := s.generate(ctx, source, prompt)
	if s.recorder != nil {
		s.recorder.ObserveGeneration(outcome, time.Since(start))
	}
	return result, err
}

func (s *Service) generate(ctx context.Context, source, prompt string) (string, string, error) {
	payload := strings.TrimSpace(image.StripDataURLPrefix(strings.TrimSpace(source)))
	if payload == "" {
		return "", OutcomeInvalidInput, ErrEmptySource
	}
	if strings.TrimSpace(prompt) == "" {
		return "", OutcomeInvalidInput, ErrEmptyPrompt
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", OutcomeInvalidInput, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if len(data) == 0 {
		return "", OutcomeInvalidInput, ErrEmptySource
	}

	req := ai.ImageRequest{
		Model:       s.model,
		Image:       data,
		MimeType:    SourceMimeType,
		Prompt:      prompt,
		AspectRatio: AspectRatio,
	}

	parts, err := s.client.GenerateImage(ctx, req)
	if err != nil {
		s.logger.Errorw("Image API error", "error", err, "model", s.model, "imageBytes", len(data))
		var te *TransportError
		if errors.As(err, &te) {
			return "", OutcomeTransportError, te
		}
		return "", OutcomeTransportError, &TransportError{Err: err}
	}

	// первая часть с картинкой выигрывает, остальные игнорируются
	for i, p := range parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			s.logger.Infow("Постер получен", "part", i, "bytes", len(p.InlineData.Data), "parts", len(parts))
			return image.EncodeDataURL(ResultMimeType, p.InlineData.Data), OutcomeSuccess, nil
		}
	}
	s.logger.Warnw("В ответе нет картинки", "parts", len(parts))
	return "", OutcomeNoImage, ErrNoImageInResponse
}
