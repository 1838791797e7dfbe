package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAIClient_GenerateImage(t *testing.T) {
	var (
		path   string
		prompt string
		size   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			prompt = r.FormValue("prompt")
			size = r.FormValue("size")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[{"revised_prompt":"noir rooftop"},{"b64_json":"AQID"},{"b64_json":"BAUG"}]}`)
	}))
	defer srv.Close()

	oClient := openai.NewClient(
		option.WithAPIKey("sk-test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	client := NewOpenAIClient(&oClient, zap.NewNop().Sugar())

	parts, err := client.GenerateImage(context.Background(), ImageRequest{
		Model:       "gpt-image-1",
		Image:       []byte{0xff, 0xd8, 0xff},
		MimeType:    "image/jpeg",
		Prompt:      "rooftop",
		AspectRatio: "3:4",
	})
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, "noir rooftop", parts[0].Text)
	assert.Nil(t, parts[0].InlineData)
	assert.Equal(t, []byte{1, 2, 3}, parts[1].InlineData.Data)
	assert.Equal(t, []byte{4, 5, 6}, parts[2].InlineData.Data)

	assert.True(t, strings.HasSuffix(path, "/images/edits"), path)
	assert.Equal(t, "rooftop", prompt)
	assert.Equal(t, "1024x1536", size)
}

func TestOpenAIClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	oClient := openai.NewClient(option.WithAPIKey("sk-bad"), option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	client := NewOpenAIClient(&oClient, zap.NewNop().Sugar())

	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "gpt-image-1", Image: []byte{1}, MimeType: "image/jpeg", Prompt: "p"})
	assert.Error(t, err)
}

func TestSizeForAspect(t *testing.T) {
	assert.Equal(t, openai.ImageEditParamsSize1024x1536, sizeForAspect("3:4"))
	assert.Equal(t, openai.ImageEditParamsSize1536x1024, sizeForAspect("16:9"))
	assert.Equal(t, openai.ImageEditParamsSize1024x1024, sizeForAspect("1:1"))
	assert.Equal(t, openai.ImageEditParamsSizeAuto, sizeForAspect(""))
}
