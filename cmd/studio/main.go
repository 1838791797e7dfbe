package main

import (
	"WickStudio/internal/ai"
	"WickStudio/internal/app/sessions"
	"WickStudio/internal/app/studio"
	"WickStudio/internal/config"
	"WickStudio/internal/server"
	"WickStudio/internal/service/image"
	"WickStudio/internal/service/metrics"
	"WickStudio/internal/service/poster"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.NewConfig()

	logger, err := newLogger(cfg.DebugMode)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		_ = logger.Sync()
	}()

	sugar.Infow(
		"Starting Wick Studio",
		"DebugMode", cfg.DebugMode,
		"backend", cfg.ImageBackend,
		"model", ai.ModelFor(cfg),
		"addr", cfg.Server.BindAddr,
	)

	// Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := ai.New(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to create image client", "error", err)
	}

	collector := metrics.NewCollector()
	svc := poster.New(client, ai.ModelFor(cfg), sugar, collector)
	processor := image.NewProcessor(cfg.Upload.MaxWidth, int(cfg.Upload.MaxBytes), cfg.Upload.JPEGQuality, cfg.Upload.MaxPixels)
	opts := studio.Options{Prompt: cfg.Prompt, DownloadPrefix: cfg.DownloadPrefix}

	// вызовы генерации не отменяются при остановке, дорабатывают до конца
	registry := sessions.New(func() *studio.Controller {
		return studio.New(context.WithoutCancel(ctx), svc, processor, opts, sugar)
	}, cfg.Server.SessionTTL, collector, sugar)

	srv := server.New(cfg.Server, cfg.Upload, registry, collector, sugar)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return registry.Run(gctx, cfg.Server.SweepInterval) })

	<-gctx.Done()
	sugar.Infow("Shutting down")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("Studio stopped with error", "error", err)
	}
	registry.Wait()
	sugar.Infow("Studio stopped")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
