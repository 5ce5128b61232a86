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
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/creditclean/internal/config"
	"github.com/JonMunkholm/creditclean/internal/core"
	"github.com/JonMunkholm/creditclean/internal/logging"
	"github.com/JonMunkholm/creditclean/internal/metrics"
	"github.com/JonMunkholm/creditclean/internal/store"
	"github.com/JonMunkholm/creditclean/internal/web"
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
		"max_concurrent_runs", cfg.Limits.MaxConcurrent,
		"max_file_size", cfg.Input.MaxFileSize,
		"database_enabled", cfg.Database.Enabled(),
		"api_key_required", cfg.Security.RequireAPIKey,
	)
	slog.Debug("configuration", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := web.Deps{
		Limiter: core.NewRunLimiter(cfg.Limits.MaxConcurrent, cfg.Limits.MaxWait),
		Metrics: metrics.New(),
	}
	deps.Metrics.RegisterLimiter(deps.Limiter)

	// The database is optional; without it ?save=true is rejected
	if cfg.Database.Enabled() {
		st, err := store.Open(ctx, cfg.Database, core.DefaultColumns())
		if err != nil {
			return err
		}
		defer st.Close()
		deps.Store = st
		slog.Info("connected to database", "table", cfg.Database.Table)
	}

	server := web.NewServer(cfg, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown on signal or server failure
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active runs to complete (with timeout)
		if status := deps.Limiter.Status(); status.Active > 0 {
			slog.Info("waiting for clean runs to complete", "active", status.Active)
			if err := deps.Limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("clean runs did not complete in time", "error", err)
			} else {
				slog.Info("all clean runs completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	slog.Info("server stopped")
	return err
}
