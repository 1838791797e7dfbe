package server

import (
	"WickStudio/internal/app/studio"
	"WickStudio/internal/service/state"
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

//go:embed static/index.html
var indexHTML []byte

type ctxKey struct{}

// stateView то, что видит страница: состояние плюс доступность кнопки генерации.
type stateView struct {
	Phase       state.Phase `json:"phase"`
	SourceImage string      `json:"sourceImage,omitempty"`
	ResultImage string      `json:"resultImage,omitempty"`
	Error       string      `json:"error,omitempty"`
	Attempt     uint64      `json:"attempt"`
	CanGenerate bool        `json:"canGenerate"`
}

func viewOf(s state.State) stateView {
	return stateView{
		Phase:       s.Phase,
		SourceImage: s.SourceImage,
		ResultImage: s.ResultImage,
		Error:       s.Error,
		Attempt:     s.Attempt,
		CanGenerate: state.CanGenerate(s),
	}
}

func controllerFrom(r *http.Request) *studio.Controller {
	return r.Context().Value(ctxKey{}).(*studio.Controller)
}

// session находит контроллер по cookie или заводит новую сессию.
// Cookie переустанавливается на каждом запросе, его срок сдвигается вместе с TTL сессии на сервере.
func (s *Server) session(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
		id, ctrl, _ := s.registry.GetOrCreate(id)
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(s.cfg.SessionTTL / time.Second),
		})
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ctrl)))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(controllerFrom(r).Snapshot()))
}

// handleUpload multipart-поле "file". Битый файл игнорируется, состояние возвращается как есть.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	accepted := ctrl.Upload(header.Filename, data)
	s.metrics.ObserveUpload(accepted)
	writeJSON(w, http.StatusOK, viewOf(ctrl.Snapshot()))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	ctrl.RemoveImage()
	writeJSON(w, http.StatusOK, viewOf(ctrl.Snapshot()))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	if !ctrl.CanGenerate() {
		writeJSON(w, http.StatusConflict, viewOf(ctrl.Snapshot()))
		return
	}
	if !s.limiter.Allow() {
		s.logger.Warnw("Лимит генераций исчерпан", "remote", r.RemoteAddr)
		w.Header().Set("Retry-After", "10")
		http.Error(w, "too many generations, try again later", http.StatusTooManyRequests)
		return
	}
	if !ctrl.Generate() {
		writeJSON(w, http.StatusConflict, viewOf(ctrl.Snapshot()))
		return
	}
	writeJSON(w, http.StatusAccepted, viewOf(ctrl.Snapshot()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	status := http.StatusOK
	if !ctrl.Reset() {
		status = http.StatusConflict
	}
	writeJSON(w, status, viewOf(ctrl.Snapshot()))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	d, ok := controllerFrom(r).Download(time.Now())
	if !ok {
		http.Error(w, "no poster yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", d.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	_, _ = w.Write(d.Data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder запоминает код ответа для метрик.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTPRequest(r.Method, route, rec.status)
		if r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
			s.logger.Debugw("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start).String())
		}
	})
}
