package main

import (
	"WickStudio/internal/config"
	"bytes"
	"context"
	stdimage "image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_StubBackendWritesPoster(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 30, 40)), nil))
	input := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(input, buf.Bytes(), 0o644))

	cfg := config.Defaults()
	cfg.ImageBackend = config.BackendStub
	cfg.InputPath = input
	cfg.OutputDir = filepath.Join(dir, "out")

	require.NoError(t, run(context.Background(), cfg, zap.NewNop().Sugar()))

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "wick-studio-poster-"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".png"))
}

func TestRun_Errors(t *testing.T) {
	cfg := config.Defaults()
	cfg.ImageBackend = config.BackendStub
	assert.Error(t, run(context.Background(), cfg, zap.NewNop().Sugar()))

	dir := t.TempDir()
	bad := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("text"), 0o644))
	cfg.InputPath = bad
	assert.Error(t, run(context.Background(), cfg, zap.NewNop().Sugar()))
}
