package ai

import (
	"WickStudio/internal/config"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeGemini(t *testing.T, status int, body string, captured *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if captured != nil {
			*captured = r.URL.Path + "\n" + string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiClient_GenerateImage(t *testing.T) {
	first := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	second := base64.StdEncoding.EncodeToString([]byte{4, 5, 6})
	body := fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[
		{"text":"here you go"},
		{"inlineData":{"mimeType":"image/png","data":%q}},
		{"inlineData":{"mimeType":"image/png","data":%q}}
	]}}]}`, first, second)

	var captured string
	srv := newFakeGemini(t, http.StatusOK, body, &captured)

	client, err := NewGeminiClient(context.Background(), config.GeminiConfig{APIKey: "test-key", BaseURL: srv.URL + "/"}, zap.NewNop().Sugar())
	require.NoError(t, err)

	parts, err := client.GenerateImage(context.Background(), ImageRequest{
		Model:       "gemini-2.5-flash-image",
		Image:       []byte{9, 9, 9},
		MimeType:    "image/jpeg",
		Prompt:      "rooftop at dawn",
		AspectRatio: "3:4",
	})
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, "here you go", parts[0].Text)
	assert.Nil(t, parts[0].InlineData)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, []byte{1, 2, 3}, parts[1].InlineData.Data)
	require.NotNil(t, parts[2].InlineData)
	assert.Equal(t, []byte{4, 5, 6}, parts[2].InlineData.Data)

	assert.Contains(t, captured, "gemini-2.5-flash-image:generateContent")
	assert.Contains(t, captured, "image/jpeg")
	assert.Contains(t, captured, "rooftop at dawn")
	assert.Contains(t, captured, "3:4")
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	srv := newFakeGemini(t, http.StatusOK, `{"candidates":[]}`, nil)

	client, err := NewGeminiClient(context.Background(), config.GeminiConfig{APIKey: "test-key", BaseURL: srv.URL + "/"}, zap.NewNop().Sugar())
	require.NoError(t, err)

	parts, err := client.GenerateImage(context.Background(), ImageRequest{Model: "m", Image: []byte{1}, MimeType: "image/jpeg", Prompt: "p"})
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestGeminiClient_APIError(t *testing.T) {
	srv := newFakeGemini(t, http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, nil)

	client, err := NewGeminiClient(context.Background(), config.GeminiConfig{APIKey: "bad", BaseURL: srv.URL + "/"}, zap.NewNop().Sugar())
	require.NoError(t, err)

	_, err = client.GenerateImage(context.Background(), ImageRequest{Model: "m", Image: []byte{1}, MimeType: "image/jpeg", Prompt: "p"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "API key not valid") || strings.Contains(err.Error(), "400"), err.Error())
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), config.GeminiConfig{}, zap.NewNop().Sugar())
	assert.Error(t, err)
}
