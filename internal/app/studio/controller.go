package studio

import (
	"WickStudio/internal/service/image"
	"WickStudio/internal/service/state"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultDownloadPrefix = "wick-studio-poster"

// Generator превращает исходное фото в постер. Реализуется poster.Service.
// Пустой результат без ошибки контроллер считает неудачей.
type Generator interface {
	Generate(ctx context.Context, source, prompt string) (string, error)
}

type Options struct {
	Prompt         string
	DownloadPrefix string
}

// Download готовый к сохранению постер.
type Download struct {
	Filename string
	MimeType string
	Data     []byte
}

// Controller владеет состоянием одной сессии. Все изменения идут через state.Reduce под мьютексом.
type Controller struct {
	ctx       context.Context
	generator Generator
	processor *image.Processor
	opts      Options
	logger    *zap.SugaredLogger

	mu         sync.Mutex
	state      state.State
	lastActive time.Time
	subs       map[int]chan state.State
	nextSub    int
	closed     bool

	wg sync.WaitGroup
}

// New создаёт контроллер. ctx используется для вызовов генерации, отдельного таймаута нет.
func New(ctx context.Context, generator Generator, processor *image.Processor, opts Options, logger *zap.SugaredLogger) *Controller {
	if opts.DownloadPrefix == "" {
		opts.DownloadPrefix = defaultDownloadPrefix
	}
	return &Controller{
		ctx:        context.WithoutCancel(ctx),
		generator:  generator,
		processor:  processor,
		opts:       opts,
		logger:     logger,
		lastActive: time.Now(),
		subs:       make(map[int]chan state.State),
	}
}

// Upload проверяет и нормализует файл, затем выбирает его как исходное фото.
// Пустой или битый файл молча игнорируется.
func (c *Controller) Upload(name string, data []byte) bool {
	if len(data) == 0 {
		c.logger.Warnw("Пустой файл проигнорирован", "name", name)
		return false
	}
	img, err := c.processor.Process(data)
	if err != nil {
		c.logger.Warnw("Не удалось обработать изображение", "name", name, "error", err)
		return false
	}
	c.logger.Infow("Фото загружено", "name", name, "width", img.Width, "height", img.Height, "bytes", img.SizeBytes)
	return c.SelectImage(img.DataURL())
}

func (c *Controller) SelectImage(dataURL string) bool {
	_, ok := c.dispatch(state.Event{Action: state.SelectImage, Image: dataURL})
	return ok
}

func (c *Controller) RemoveImage() {
	c.dispatch(state.Event{Action: state.RemoveImage})
}

// Reset возвращает к Idle после успеха, исходное фото остаётся.
func (c *Controller) Reset() bool {
	_, ok := c.dispatch(state.Event{Action: state.Reset})
	return ok
}

// Generate запускает ровно один вызов генерации. false, если кнопка сейчас недоступна.
func (c *Controller) Generate() bool {
	next, ok := c.dispatch(state.Event{Action: state.StartGeneration})
	if !ok {
		return false
	}
	c.wg.Add(1)
	go c.run(next.Attempt, next.SourceImage)
	return true
}

var errEmptyResult = errors.New("generator returned empty result")

func (c *Controller) run(attempt uint64, source string) {
	defer c.wg.Done()

	start := time.Now()
	c.logger.Infow("Генерация постера", "attempt", attempt)
	result, err := c.generator.Generate(c.ctx, source, c.opts.Prompt)
	if err == nil && result == "" {
		err = errEmptyResult
	}
	if err != nil {
		c.logger.Errorw("Генерация не удалась", "attempt", attempt, "error", err, "duration", time.Since(start).String())
		if _, ok := c.dispatch(state.Event{Action: state.GenerationFailed, Attempt: attempt}); !ok {
			c.logger.Infow("Устаревший ответ отброшен", "attempt", attempt)
		}
		return
	}
	if _, ok := c.dispatch(state.Event{Action: state.GenerationSucceeded, Image: result, Attempt: attempt}); !ok {
		c.logger.Infow("Устаревший ответ отброшен", "attempt", attempt)
		return
	}
	c.logger.Infow("Постер готов", "attempt", attempt, "duration", time.Since(start).String())
}

// Download только читает результат. Имя файла: <prefix>-<unix millis>.png.
func (c *Controller) Download(now time.Time) (Download, bool) {
	s := c.Snapshot()
	if s.Phase != state.Success || s.ResultImage == "" {
		return Download{}, false
	}
	mimeType, data, err := image.DecodeDataURL(s.ResultImage)
	if err != nil {
		c.logger.Errorw("Не удалось декодировать результат", "error", err)
		return Download{}, false
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return Download{
		Filename: fmt.Sprintf("%s-%d.png", c.opts.DownloadPrefix, now.UnixMilli()),
		MimeType: mimeType,
		Data:     data,
	}, true
}

func (c *Controller) Snapshot() state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) CanGenerate() bool {
	return state.CanGenerate(c.Snapshot())
}

// Busy true, пока вызов генерации не завершён.
func (c *Controller) Busy() bool {
	return c.Snapshot().Phase == state.Generating
}

// LastActive время последнего действия пользователя или завершения вызова.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Touch отмечает сессию активной, например при каждом запросе браузера.
func (c *Controller) Touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.After(c.lastActive) {
		c.lastActive = now
	}
}

// Subscribe возвращает канал снимков состояния. В канале всегда лежит только последний снимок.
// Текущее состояние отправляется сразу.
func (c *Controller) Subscribe() (<-chan state.State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan state.State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Wait блокируется, пока есть незавершённый вызов генерации.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close закрывает все подписки. Незавершённый вызов доработает, но его результат никто не увидит.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) dispatch(ev state.Event) (state.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := state.Reduce(c.state, ev)
	if !ok {
		return c.state, false
	}
	c.state = next
	c.lastActive = time.Now()
	c.publish(next)
	return next, true
}

// publish вызывается под c.mu.
func (c *Controller) publish(s state.State) {
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			// подписчик не успел прочитать, заменяем снимок на свежий
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
