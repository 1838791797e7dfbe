package server

import (
	"WickStudio/internal/app/sessions"
	"WickStudio/internal/config"
	"WickStudio/internal/service/metrics"
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const sessionCookie = "wick_session"

// Server HTTP-интерфейс студии: страница, JSON API и WebSocket с состоянием.
type Server struct {
	cfg       config.ServerConfig
	maxUpload int64
	registry  *sessions.Registry
	metrics   *metrics.Collector
	limiter   *rate.Limiter
	logger    *zap.SugaredLogger

	srv     *http.Server
	running atomic.Bool
	// закрывает WebSocket-соединения при Shutdown, сервер их сам не отслеживает
	wsCtx    context.Context
	wsCancel context.CancelFunc

	mu   sync.Mutex
	addr string
}

func New(cfg config.ServerConfig, upload config.UploadConfig, registry *sessions.Registry, collector *metrics.Collector, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:8080"
	}
	perMinute := max(1, cfg.GenerateRatePerMinute)
	s := &Server{
		cfg:       cfg,
		maxUpload: upload.MaxBytes,
		registry:  registry,
		metrics:   collector,
		limiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), max(1, cfg.GenerateBurst)),
		logger:    logger,
		addr:      cfg.BindAddr,
	}
	s.wsCtx, s.wsCancel = context.WithCancel(context.Background())

	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.srv.RegisterOnShutdown(s.wsCancel)
	return s
}

// Handler собирает маршруты. Используется и сервером, и тестами.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.Handle("GET /api/state", s.session(s.handleState))
	mux.Handle("POST /api/image", s.session(s.handleUpload))
	mux.Handle("DELETE /api/image", s.session(s.handleRemove))
	mux.Handle("POST /api/generate", s.session(s.handleGenerate))
	mux.Handle("POST /api/reset", s.session(s.handleReset))
	mux.Handle("GET /api/download", s.session(s.handleDownload))
	mux.Handle("GET /ws", s.session(s.handleWS))
	return s.instrument(mux)
}

// Start начинает слушать адрес и обслуживать запросы в фоне. Останавливается при отмене ctx.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		s.logger.Infow("Studio listening", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Studio server stopped with error", "error", err)
		} else {
			s.logger.Infow("Studio server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// Run запускает сервер и блокируется до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop(context.WithoutCancel(ctx))
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("studio server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

// Addr фактический адрес после Start (важно для порта 0).
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
