package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/scriptboard/backend/internal/api"
	"github.com/scriptboard/backend/internal/content"
	"github.com/scriptboard/backend/internal/infrastructure/config"
	"github.com/scriptboard/backend/internal/scheduler"
	"github.com/scriptboard/backend/internal/service"
	"github.com/scriptboard/backend/internal/store"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	// ── Dependencies ────────────────────────────────────────────────
	db, err := store.NewSQLite(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	scenarios, illustrator := contentProviders(cfg)
	logger.Info("content backend selected", "backend", cfg.ContentBackend)

	keeper := service.NewHistoryKeeper(db, logger)
	quizSvc := service.NewQuizService(db, keeper, scenarios, illustrator, logger, service.QuizOptions{
		FetchTimeout: cfg.FetchTimeout,
	})
	handler := api.NewHandler(db, quizSvc, keeper, logger)

	sched := scheduler.New(keeper, cfg.HistoryPruneInterval, cfg.PruneWorkers, logger).
		WithSessionSweep(quizSvc, cfg.SessionSweepInterval, cfg.SessionTTL)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()
	api.RegisterRoutes(mux, handler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(logger)(api.CORS(mux))

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "address", cfg.ServerAddress)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}

// contentProviders builds the scenario writer and illustrator for the
// configured backend. The local backend only writes text; its images come
// from the static illustrator.
func contentProviders(cfg *config.Config) (content.ScenarioWriter, content.Illustrator) {
	switch cfg.ContentBackend {
	case config.BackendOpenAI:
		client := openai.NewClient(cfg.OpenAIAPIKey)
		return content.NewOpenAIScenarioWriter(client, cfg.OpenAITextModel),
			content.NewOpenAIIllustrator(client, cfg.OpenAIImageModel, cfg.OpenAITextModel)
	case config.BackendLocal:
		return content.NewLocalScenarioWriter(cfg.LLMURL, cfg.LLMModel), content.StaticIllustrator{}
	default:
		return content.StaticScenarioWriter{}, content.StaticIllustrator{}
	}
}
