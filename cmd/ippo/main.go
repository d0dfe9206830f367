package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ippolabs/ippo/internal/api"
	"github.com/ippolabs/ippo/internal/coach"
	"github.com/ippolabs/ippo/internal/config"
	"github.com/ippolabs/ippo/internal/directory"
	"github.com/ippolabs/ippo/internal/events"
	"github.com/ippolabs/ippo/internal/openai"
	"github.com/ippolabs/ippo/internal/review"
	"github.com/ippolabs/ippo/internal/transcript"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("ippo starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Employee master and KPI definitions
	dir, err := directory.Load(cfg.EmployeesFile, cfg.KPIFile)
	if err != nil {
		slog.Error("failed to load directory", "error", err)
		os.Exit(1)
	}
	slog.Info("directory loaded", "employees", len(dir.Employees()))

	// Transcript store
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	store, err := transcript.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database connected")

	// Completion client
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	slog.Info("completion client ready", "model", cfg.OpenAIModel)

	// Events (optional — ippo works without NATS, just no downstream signals)
	var pub *events.Publisher
	if cfg.NatsURL != "" {
		pub, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without event publishing")
	}

	sessions := coach.NewSessions()
	dialogue := coach.New(llm, store, pub, slog.Default())
	reviewer := review.New(llm, store, dir, pub, slog.Default())

	if cfg.APIToken == "" {
		slog.Warn("IPPO_API_TOKEN not set — review and export routes disabled")
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, dir, sessions, dialogue, store, reviewer, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("ippo ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("ippo stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
