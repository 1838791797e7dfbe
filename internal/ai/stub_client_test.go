package ai

import (
	"WickStudio/internal/config"
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStubClient_ReturnsPortraitPNG(t *testing.T) {
	parts, err := NewStubClient().GenerateImage(context.Background(), ImageRequest{})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].InlineData)

	img, err := png.Decode(bytes.NewReader(parts[1].InlineData.Data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestStubClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStubClient().GenerateImage(ctx, ImageRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_SelectsBackend(t *testing.T) {
	logger := zap.NewNop().Sugar()

	cfg := config.Defaults()
	cfg.ImageBackend = config.BackendStub
	client, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &StubClient{}, client)
	assert.Equal(t, "stub", ModelFor(cfg))

	cfg.ImageBackend = config.BackendOpenAI
	cfg.OpenAI.APIKey = "sk-test"
	client, err = New(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, client)
	assert.Equal(t, "gpt-image-1", ModelFor(cfg))

	cfg.ImageBackend = config.BackendGemini
	cfg.Gemini.APIKey = "test-key"
	client, err = New(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, client)
	assert.Equal(t, "gemini-2.5-flash-image", ModelFor(cfg))

	cfg.ImageBackend = "nope"
	_, err = New(context.Background(), cfg, logger)
	assert.Error(t, err)
}
