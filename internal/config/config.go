package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Поддерживаемые бэкенды генерации изображений.
const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
	BackendOpenAI = "openai"
	BackendStub   = "stub"
)

// DefaultPrompt фиксированная инструкция для модели. Перекрывается POSTER_PROMPT.
const DefaultPrompt = "Create a calm, introspective theatrical poster in the muted visual tones of John Wick: Chapter 4. " +
	"Early dawn on a quiet Paris rooftop, soft golden light through thinning clouds, the Eiffel Tower and Sacré-Cœur " +
	"faint in the haze. Two figures lean side by side on a ledge in a moment of quiet alliance: John Wick in a plain " +
	"black shirt, arms crossed, and the person from the uploaded photo, whose facial features, hairstyle and direct " +
	"gaze must be reproduced exactly, wearing a dark coat over a tactical sweater. No weapons, no action, only steam " +
	"rising from a coffee cup between them. Ultra detailed 8K textures, warm rim light, cold greys blended with " +
	"gentle orange and gold. No text, no title, no logo, close-up composition."

type Config struct {
	DebugMode      bool   `env:"DEBUG_MODE"`      //Режим дебага
	ImageBackend   string `env:"IMAGE_BACKEND"`   // gemini|vertex|openai|stub
	Prompt         string `env:"POSTER_PROMPT"`   // Инструкция, отправляемая вместе с фото
	DownloadPrefix string `env:"DOWNLOAD_PREFIX"` // Префикс имени скачиваемого файла, к нему добавляется epoch в мс

	Gemini GeminiConfig
	OpenAI OpenAIConfig
	Upload UploadConfig
	Server ServerConfig

	// CLI (cmd/poster)
	InputPath string `env:"POSTER_INPUT"`      // Путь к исходному фото
	OutputDir string `env:"POSTER_OUTPUT_DIR"` // Куда сохранять готовый постер
}

// GeminiConfig настройки Gemini API / Vertex AI.
type GeminiConfig struct {
	APIKey   string `env:"GEMINI_API_KEY"` // Если пусто, берём API_KEY
	Model    string `env:"GEMINI_IMAGE_MODEL"`
	BaseURL  string `env:"GEMINI_BASE_URL"` // Переопределение endpoint, по умолчанию endpoint SDK
	Project  string `env:"GOOGLE_CLOUD_PROJECT"`
	Location string `env:"GOOGLE_CLOUD_LOCATION"`
}

// OpenAIConfig настройки запасного бэкенда OpenAI Images.
type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	Model   string `env:"OPENAI_IMAGE_MODEL"`
	BaseURL string `env:"OPENAI_BASE_URL"`
}

// UploadConfig ограничения на загружаемое фото.
type UploadConfig struct {
	MaxBytes    int64 `env:"UPLOAD_MAX_BYTES"`    // Максимальный размер файла
	MaxWidth    int   `env:"UPLOAD_MAX_WIDTH"`    // Более широкие фото уменьшаются
	JPEGQuality int   `env:"UPLOAD_JPEG_QUALITY"` // Качество при перекодировании
	MaxPixels   int64 `env:"UPLOAD_MAX_PIXELS"`   // Предел ширина*высота по заголовку файла
}

// ServerConfig настройки HTTP-интерфейса студии.
type ServerConfig struct {
	BindAddr              string        `env:"STUDIO_BIND_ADDR"`
	SessionTTL            time.Duration `env:"SESSION_TTL"`            // Через сколько простоя сессия удаляется
	SweepInterval         time.Duration `env:"SESSION_SWEEP_INTERVAL"` // Периодичность очистки сессий
	GenerateRatePerMinute int           `env:"GENERATE_RATE_PER_MINUTE"`
	GenerateBurst         int           `env:"GENERATE_BURST"`
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:      false,
		ImageBackend:   BackendGemini,
		Prompt:         DefaultPrompt,
		DownloadPrefix: "wick-studio-poster",
		Gemini: GeminiConfig{
			Model:    "gemini-2.5-flash-image",
			Location: "us-central1",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-image-1",
		},
		Upload: UploadConfig{
			MaxBytes:    10 << 20, // "PNG, JPG up to 10MB"
			MaxWidth:    2048,
			JPEGQuality: 90,
			MaxPixels:   40_000_000,
		},
		Server: ServerConfig{
			BindAddr:              "127.0.0.1:8080",
			SessionTTL:            time.Hour,
			SweepInterval:         5 * time.Minute,
			GenerateRatePerMinute: 30,
			GenerateBurst:         5,
		},
		OutputDir: ".",
	}
}

// NewConfig загружает конфигурацию приложения. Ошибка конфигурации фатальна.
func NewConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load собирает конфигурацию: дефолты → .env → окружение → флаги args.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	// общий API_KEY как запасной вариант
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	}

	fs := flag.NewFlagSet("wick-studio", flag.ContinueOnError)
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	fs.StringVar(&cfg.ImageBackend, "image-backend", cfg.ImageBackend, "бэкенд генерации: gemini|vertex|openai|stub")
	fs.StringVar(&cfg.Prompt, "prompt", cfg.Prompt, "инструкция для модели")
	fs.StringVar(&cfg.DownloadPrefix, "download-prefix", cfg.DownloadPrefix, "префикс имени скачиваемого постера")
	// Gemini
	fs.StringVar(&cfg.Gemini.Model, "gemini-model", cfg.Gemini.Model, "идентификатор модели Gemini")
	fs.StringVar(&cfg.Gemini.BaseURL, "gemini-base-url", cfg.Gemini.BaseURL, "переопределение endpoint Gemini API")
	fs.StringVar(&cfg.Gemini.Project, "gcp-project", cfg.Gemini.Project, "проект GCP для бэкенда vertex")
	fs.StringVar(&cfg.Gemini.Location, "gcp-location", cfg.Gemini.Location, "регион GCP для бэкенда vertex")
	// OpenAI
	fs.StringVar(&cfg.OpenAI.Model, "openai-model", cfg.OpenAI.Model, "модель OpenAI Images")
	fs.StringVar(&cfg.OpenAI.BaseURL, "openai-base-url", cfg.OpenAI.BaseURL, "переопределение endpoint OpenAI")
	// Загрузка
	fs.Int64Var(&cfg.Upload.MaxBytes, "upload-max-bytes", cfg.Upload.MaxBytes, "максимальный размер загружаемого фото, байт")
	fs.IntVar(&cfg.Upload.MaxWidth, "upload-max-width", cfg.Upload.MaxWidth, "фото шире уменьшаются до этой ширины")
	fs.IntVar(&cfg.Upload.JPEGQuality, "upload-jpeg-quality", cfg.Upload.JPEGQuality, "качество JPEG при перекодировании (1-100)")
	fs.Int64Var(&cfg.Upload.MaxPixels, "upload-max-pixels", cfg.Upload.MaxPixels, "максимум пикселей (ширина*высота) во фото")
	// Сервер
	fs.StringVar(&cfg.Server.BindAddr, "bind-addr", cfg.Server.BindAddr, "адрес HTTP-сервера студии")
	fs.DurationVar(&cfg.Server.SessionTTL, "session-ttl", cfg.Server.SessionTTL, "время простоя, после которого сессия удаляется")
	fs.DurationVar(&cfg.Server.SweepInterval, "session-sweep-interval", cfg.Server.SweepInterval, "периодичность очистки сессий")
	fs.IntVar(&cfg.Server.GenerateRatePerMinute, "generate-rate-per-minute", cfg.Server.GenerateRatePerMinute, "сколько генераций в минуту разрешено на процесс")
	fs.IntVar(&cfg.Server.GenerateBurst, "generate-burst", cfg.Server.GenerateBurst, "допустимый всплеск генераций")
	// CLI
	fs.StringVar(&cfg.InputPath, "input", cfg.InputPath, "путь к исходному фото (cmd/poster)")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "папка для готового постера (cmd/poster)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.ImageBackend = strings.ToLower(strings.TrimSpace(cfg.ImageBackend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек выбранного бэкенда.
func (c *Config) Validate() error {
	switch c.ImageBackend {
	case BackendGemini:
		if strings.TrimSpace(c.Gemini.APIKey) == "" {
			return errors.New("gemini: GEMINI_API_KEY (или API_KEY) не задан")
		}
	case BackendVertex:
		if strings.TrimSpace(c.Gemini.Project) == "" {
			return errors.New("vertex: GOOGLE_CLOUD_PROJECT не задан")
		}
	case BackendOpenAI:
		if strings.TrimSpace(c.OpenAI.APIKey) == "" {
			return errors.New("openai: OPENAI_API_KEY не задан")
		}
	case BackendStub:
	default:
		return fmt.Errorf("unknown image backend %q; use gemini|vertex|openai|stub", c.ImageBackend)
	}

	if strings.TrimSpace(c.Prompt) == "" {
		return errors.New("prompt is empty")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.MaxWidth <= 0 {
		return fmt.Errorf("upload max width must be positive, got %d", c.Upload.MaxWidth)
	}
	if c.Upload.MaxPixels <= 0 {
		return fmt.Errorf("upload max pixels must be positive, got %d", c.Upload.MaxPixels)
	}
	if c.Upload.JPEGQuality < 1 || c.Upload.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be within 1..100, got %d", c.Upload.JPEGQuality)
	}
	if c.Server.GenerateRatePerMinute <= 0 || c.Server.GenerateBurst <= 0 {
		return errors.New("generate rate and burst must be positive")
	}
	return nil
}
