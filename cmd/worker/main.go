// Command worker runs the background context-pipeline daemon: it claims
// queued jobs and dispatches them through internal/worker.Handlers until
// signalled to stop. Grounded on
// _examples/haowjy-meridian/backend/cmd/server/main.go's wiring shape and
// original_source/simon/context/worker.go's run_worker entrypoint.
package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"focus/internal/adminapi"
	"focus/internal/config"
	"focus/internal/domain/repositories"
	"focus/internal/llm"
	"focus/internal/projectstate"
	"focus/internal/recorder"
	"focus/internal/repository/postgres"
	"focus/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("FOCUS_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	if cfg.General.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cfg.General.LogLevel)); err == nil {
			logLevel = lvl
		}
	}
	logOutput := io.Writer(os.Stdout)
	if logDir := os.Getenv("FOCUS_LOG_DIR"); logDir != "" {
		logFile, err := config.SetupLogFile(logDir, 10)
		if err != nil {
			log.Fatalf("setup log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("context worker starting",
		"environment", cfg.Environment,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.General.DBURL)
	if err != nil {
		log.Fatalf("create connection pool: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	jobs := postgres.NewJobQueueRepository(pool, tables, logger)
	sessions := postgres.NewSessionRepository(pool, tables, logger)
	entities := postgres.NewEntityRepository(pool, tables, logger)
	skills := postgres.NewSkillRepository(pool, tables, logger)

	stateStore, err := projectstate.Open(os.Getenv("FOCUS_PROJECT_STATE_PATH"))
	if err != nil {
		log.Fatalf("open project state store: %v", err)
	}

	var provider llm.Provider
	if cfg.Anthropic.APIKey != "" {
		p, err := llm.NewAnthropicProvider(cfg.Anthropic.APIKey)
		if err != nil {
			log.Fatalf("create anthropic provider: %v", err)
		}
		provider = p
		logger.Info("anthropic provider configured", "model", cfg.Anthropic.Model)
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set; turn/session/skill summarization will fall back to truncation")
	}

	handlers := &worker.Handlers{
		Jobs:     jobs,
		Sessions: sessions,
		Entities: entities,
		Skills:   skills,
		Recorder: recorder.New(sessions, jobs),
		Provider: provider,
		Settings: cfg,
		State:    stateStore,
		Logger:   logger,
	}

	pollInterval := time.Duration(cfg.Context.WorkerPollInterval * float64(time.Second))
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	w := worker.New(handlers, pollInterval, logger)

	if cfg.Admin.Enabled {
		startAdminAPI(ctx, cfg, jobs, entities, stateStore, logger)
	}

	w.Run(ctx)
	logger.Info("context worker exited")
}

// startAdminAPI launches the ambient admin/introspection HTTP surface
// (SPEC_FULL.md §C) in the background. It shuts down when ctx is
// cancelled, the same signal that stops the worker loop.
func startAdminAPI(ctx context.Context, cfg *config.Settings, jobs repositories.JobQueue, entities repositories.EntityStore, stateStore *projectstate.Store, logger *slog.Logger) {
	var verifier adminapi.JWTVerifier
	if cfg.Admin.JWKSURL != "" {
		v, err := adminapi.NewJWTVerifier(cfg.Admin.JWKSURL, logger)
		if err != nil {
			logger.Error("admin API JWT verifier setup failed; auth disabled", "error", err)
		} else {
			verifier = v
		}
	}

	srv := &adminapi.Server{Jobs: jobs, Entities: entities, State: stateStore, Logger: logger}
	httpServer := &http.Server{
		Addr:    cfg.Admin.Addr,
		Handler: srv.NewHandler(cfg.Admin, verifier),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("admin API listening", "addr", cfg.Admin.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin API server failed", "error", err)
		}
	}()
}
