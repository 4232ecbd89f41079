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

	"github.com/JonMunkholm/basketfreq/internal/config"
	"github.com/JonMunkholm/basketfreq/internal/core"
	"github.com/JonMunkholm/basketfreq/internal/extract"
	"github.com/JonMunkholm/basketfreq/internal/history"
	"github.com/JonMunkholm/basketfreq/internal/logging"
	"github.com/JonMunkholm/basketfreq/internal/web"
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
		"dataset", cfg.Dataset.Path,
		"top_n", cfg.Dataset.TopN,
		"history_driver", cfg.History.Driver,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		slog.Error("failed to open run history", "driver", cfg.History.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	service, err := core.NewService(core.Options{
		DatasetPath:   cfg.Dataset.Path,
		Delimiter:     cfg.Dataset.DelimiterRune(),
		TopN:          cfg.Dataset.TopN,
		History:       store,
		MaxConcurrent: cfg.Dataset.MaxConcurrent,
		MaxWait:       cfg.Dataset.MaxWait,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	// A dataset that cannot be loaded is fatal at startup. A dataset without
	// item data still starts: the dashboard shows the error to the user.
	if err := checkDataset(ctx, service); err != nil {
		store.Close()
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for analyses to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("analyses did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		store.Close()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// checkDataset verifies the dataset once and logs its outcome. Nothing is
// written to the history store. It returns an error only when the dataset
// itself cannot be loaded.
func checkDataset(ctx context.Context, service *core.Service) error {
	a, err := service.Verify(ctx)
	switch {
	case errors.Is(err, extract.ErrNoItemData):
		slog.Warn("dataset has no item data", "dataset", service.DatasetPath(), "code", core.MapError(err).Code)
		return nil
	case err != nil:
		slog.Error("failed to load dataset", "dataset", service.DatasetPath(), "error", err, "detail", core.FormatUserError(err))
		return err
	case a.Empty():
		slog.Warn("dataset item column is empty", "dataset", service.DatasetPath(), "strategy", a.Extraction.Strategy)
		return nil
	}

	slog.Info("dataset verified",
		"dataset", service.DatasetPath(),
		"strategy", a.Extraction.Strategy,
		"columns", a.Extraction.Columns,
		"products", a.Frequencies.Len(),
		"occurrences", a.Frequencies.Total,
	)
	return nil
}
