package sessions

import (
	"WickStudio/internal/app/studio"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gauge получает число активных сессий после каждого изменения реестра.
type Gauge interface {
	SetActiveSessions(n int)
}

// Registry хранит по контроллеру на каждую сессию браузера.
type Registry struct {
	factory func() *studio.Controller
	ttl     time.Duration
	gauge   Gauge
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[string]*studio.Controller
}

// New создаёт реестр. gauge может быть nil.
func New(factory func() *studio.Controller, ttl time.Duration, gauge Gauge, logger *zap.SugaredLogger) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		factory:  factory,
		ttl:      ttl,
		gauge:    gauge,
		logger:   logger,
		sessions: make(map[string]*studio.Controller),
	}
}

// Get ищет сессию и отмечает её активной. Невалидный идентификатор считается отсутствующим.
// Отметка ставится под r.mu, поэтому Sweep не удалит только что найденную сессию.
func (r *Registry) Get(id string) (*studio.Controller, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[id]
	if ok {
		c.Touch(time.Now())
	}
	return c, ok
}

// GetOrCreate возвращает существующую сессию или заводит новую с новым идентификатором.
func (r *Registry) GetOrCreate(id string) (string, *studio.Controller, bool) {
	if c, ok := r.Get(id); ok {
		return id, c, false
	}
	id = uuid.NewString()
	c := r.factory()

	r.mu.Lock()
	r.sessions[id] = c
	n := len(r.sessions)
	r.mu.Unlock()

	r.report(n)
	r.logger.Infow("Новая сессия", "session", id, "active", n)
	return id, c, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep удаляет сессии, неактивные дольше ttl. Сессии с незавершённым вызовом не трогаются.
func (r *Registry) Sweep(now time.Time) int {
	var evicted []*studio.Controller

	r.mu.Lock()
	for id, c := range r.sessions {
		if c.Busy() || now.Sub(c.LastActive()) < r.ttl {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, c)
		r.logger.Infow("Сессия удалена по TTL", "session", id, "idle", now.Sub(c.LastActive()).String())
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, c := range evicted {
		c.Close()
	}
	if len(evicted) > 0 {
		r.report(n)
	}
	return len(evicted)
}

// Run периодически вызывает Sweep до отмены контекста.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	r.logger.Infow("Session sweeper started", "interval", interval.String(), "ttl", r.ttl.String())
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}

// Wait дожидается завершения вызовов во всех сессиях.
func (r *Registry) Wait() {
	r.mu.Lock()
	all := make([]*studio.Controller, 0, len(r.sessions))
	for _, c := range r.sessions {
		all = append(all, c)
	}
	r.mu.Unlock()
	for _, c := range all {
		c.Wait()
	}
}

func (r *Registry) report(n int) {
	if r.gauge != nil {
		r.gauge.SetActiveSessions(n)
	}
}
