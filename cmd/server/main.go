package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sellybase/importer/internal/config"
	"github.com/sellybase/importer/internal/core"
	"github.com/sellybase/importer/internal/logging"
	"github.com/sellybase/importer/internal/store/memory"
	"github.com/sellybase/importer/internal/store/postgres"
	"github.com/sellybase/importer/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"skip_database", cfg.Database.SkipDatabase,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	backend, err := openBackend(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	service := core.NewService(backend, core.Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		BatchSize:     cfg.Upload.BatchSize,
		ExecTimeout:   cfg.Upload.Timeout,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	})

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSweeper(jobCtx, core.SweepConfig{
		StaleAfter: cfg.Import.StaleAfter,
		Interval:   cfg.Import.SweepInterval,
	})

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}

		// Running imports are rolled back and failed, not left in processing
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("stopping running imports", "active", status.Active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("imports did not stop in time", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// openBackend selects the in-memory backend when the database is skipped
// and Postgres otherwise.
func openBackend(ctx context.Context, cfg *config.Config) (core.DataBackend, error) {
	if cfg.Database.SkipDatabase {
		if cfg.Import.SeedFixtures {
			slog.Info("using in-memory backend with demo fixtures", "organization", memory.DemoOrganization)
			return memory.NewSeeded(), nil
		}
		slog.Info("using empty in-memory backend")
		return memory.New(), nil
	}

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	return postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
}
