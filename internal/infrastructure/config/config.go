package config

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Content backends.
const (
	BackendOpenAI = "openai"
	BackendLocal  = "local"
	BackendStatic = "static"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration
	DatabasePath    string
	LogLevel        slog.Level

	// Quiz content
	ContentBackend   string // "openai", "local" or "static"
	OpenAIAPIKey     string
	OpenAITextModel  string
	OpenAIImageModel string
	LLMURL           string // OpenAI-compatible endpoint, e.g. "http://localhost:1234"
	LLMModel         string // model name, e.g. "qwen3-8b"
	FetchTimeout     time.Duration

	// History maintenance
	HistoryPruneInterval time.Duration
	PruneWorkers         int

	// Idle quiz sessions
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress:        mustGetenv("SERVER_ADDRESS"),
		ShutdownTimeout:      mustGetDuration("SHUTDOWN_TIMEOUT"),
		DatabasePath:         getenvDefault("DATABASE_PATH", "scriptboard.db"),
		LogLevel:             getLevelDefault("LOG_LEVEL", slog.LevelInfo),
		ContentBackend:       getenvDefault("CONTENT_BACKEND", BackendStatic),
		OpenAITextModel:      getenvDefault("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
		OpenAIImageModel:     getenvDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),
		LLMURL:               getenvDefault("LLM_URL", "http://localhost:1234"),
		LLMModel:             getenvDefault("LLM_MODEL", "qwen3-8b"),
		FetchTimeout:         getDurationDefault("FETCH_TIMEOUT", 90*time.Second),
		HistoryPruneInterval: getDurationDefault("HISTORY_PRUNE_INTERVAL", 6*time.Hour),
		PruneWorkers:         getIntDefault("PRUNE_WORKERS", 4),
		SessionTTL:           getDurationDefault("SESSION_TTL", 30*time.Minute),
		SessionSweepInterval: getDurationDefault("SESSION_SWEEP_INTERVAL", 5*time.Minute),
	}

	switch cfg.ContentBackend {
	case BackendOpenAI:
		cfg.OpenAIAPIKey = mustGetenv("OPENAI_API_KEY")
	case BackendLocal, BackendStatic:
	default:
		log.Fatalf("config: CONTENT_BACKEND=%q must be one of openai, local, static", cfg.ContentBackend)
	}

	return cfg
}

func mustGetenv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	return v
}

func mustGetDuration(k string) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getDurationDefault(k string, fallback time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("config: %s=%q is not a valid positive duration", k, v)
	}
	return d
}

func getIntDefault(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		log.Fatalf("config: %s=%q is not a positive integer", k, v)
	}
	return n
}

func getLevelDefault(k string, fallback slog.Level) slog.Level {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		log.Fatalf("config: %s=%q is not a valid log level: %v", k, v, err)
	}
	return level
}
