package main

import (
	"WickStudio/internal/ai"
	"WickStudio/internal/app/studio"
	"WickStudio/internal/config"
	"WickStudio/internal/service/image"
	"WickStudio/internal/service/poster"
	"WickStudio/internal/service/state"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Разовый прогон: фото с диска → постер в output-dir.
func main() {
	cfg := config.NewConfig()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(context.Background(), cfg, sugar); err != nil {
		sugar.Errorw("Poster generation failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	if cfg.InputPath == "" {
		return errors.New("input photo is required: use -input or POSTER_INPUT")
	}
	data, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	client, err := ai.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create image client: %w", err)
	}
	svc := poster.New(client, ai.ModelFor(cfg), logger, nil)
	processor := image.NewProcessor(cfg.Upload.MaxWidth, int(cfg.Upload.MaxBytes), cfg.Upload.JPEGQuality, cfg.Upload.MaxPixels)
	ctrl := studio.New(ctx, svc, processor, studio.Options{Prompt: cfg.Prompt, DownloadPrefix: cfg.DownloadPrefix}, logger)

	if !ctrl.Upload(filepath.Base(cfg.InputPath), data) {
		return fmt.Errorf("%s is not a supported image", cfg.InputPath)
	}
	if !ctrl.Generate() {
		return errors.New("generation was not started")
	}
	ctrl.Wait()

	if s := ctrl.Snapshot(); s.Phase != state.Success {
		return errors.New(s.Error)
	}
	d, ok := ctrl.Download(time.Now())
	if !ok {
		return errors.New("no poster in result")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out := filepath.Join(cfg.OutputDir, d.Filename)
	if err := os.WriteFile(out, d.Data, 0o644); err != nil {
		return fmt.Errorf("write poster: %w", err)
	}
	logger.Infow("Постер сохранён", "path", out, "bytes", len(d.Data))
	fmt.Println(out)
	return nil
}
