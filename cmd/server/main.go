package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/garnizeh/rojgar/api"
	dbfs "github.com/garnizeh/rojgar/db"
	"github.com/garnizeh/rojgar/internal/ai"
	"github.com/garnizeh/rojgar/internal/cache"
	"github.com/garnizeh/rojgar/internal/config"
	"github.com/garnizeh/rojgar/internal/db"
	"github.com/garnizeh/rojgar/internal/jobs"
	"github.com/garnizeh/rojgar/internal/repository/sqlite"
	"github.com/garnizeh/rojgar/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	ai.SetLogger(logger)
	ai.SetProcessorLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting rojgar server", "version", version, "build_time", buildTime, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("closing DB", "err", err)
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
	}

	repo := sqlite.New(database, logger)

	llm, err := ollama.NewDefaultClient(cfg.Ollama, ollama.WithJSONFormat())
	if err != nil {
		log.Fatalf("Failed to create ollama client: %v", err)
	}
	defer llm.Close()
	if err := llm.Health(ctx); err != nil {
		logger.Warn("ollama not ready; question generation will fail until it is", "err", err)
	}

	engine, err := ai.NewEngine(ctx, llm, cfg.EngineConfig, repo, repo)
	if err != nil {
		log.Fatalf("Failed to create question engine: %v", err)
	}

	deps := api.Deps{
		DB:        database,
		Users:     repo,
		Jobs:      repo,
		Schemas:   repo,
		Templates: repo,
		Engine:    engine,
		Probes:    map[string]api.Pinger{"ollama": api.PingFunc(llm.Health)},
	}

	var questionCache ai.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable; running without cache and rate limiting", "err", err)
		} else {
			defer rc.Close()
			questionCache = cache.NewQuestionCache(rc, cache.DefaultQuestionTTL)
			deps.Limiter = rc
			deps.Probes["redis"] = rc
		}
	}

	svc := ai.NewService(engine, repo, questionCache)
	deps.Questions = svc

	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{
		jobs.TypePregenerateQuestions: jobs.QuestionsHandler(svc),
	}, logger, cfg.Workers)
	pool.Start(ctx)
	defer pool.Stop()
	deps.Queue = pool

	handler := api.SetupRoutes(cfg, version, buildTime, deps)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout + cfg.EngineConfig.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server failed", "err", err)
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}

	logger.Info("server exited")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
