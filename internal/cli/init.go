// Package cli provides common CLI initialization utilities shared by
// cmd/payoff and cmd/payoff-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"payoff/internal/backend"
	"payoff/internal/config"
	"payoff/internal/ledger"
	applog "payoff/internal/log"
)

// SetupLogger builds the process logger from a level and format and installs
// it as the slog default. Unknown levels fall back to info.
func SetupLogger(level, format, component string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	cfg.Format = format
	cfg.Component = component

	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// OpenLedger opens the configured blob store and loads the ledger from it,
// running the legacy migration when needed. Exits the process on failure:
// the application must not start against data it cannot read.
func OpenLedger(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*ledger.Store, *backend.BackendResult) {
	return openLedger(ctx, logger, cfg, (*ledger.Store).Load)
}

// OpenLedgerReader is OpenLedger for processes that only read a ledger owned
// by another process. It never migrates or writes.
func OpenLedgerReader(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*ledger.Store, *backend.BackendResult) {
	return openLedger(ctx, logger, cfg, (*ledger.Store).Refresh)
}

func openLedger(ctx context.Context, logger *applog.Logger, cfg *config.Config, load func(*ledger.Store, context.Context) error) (*ledger.Store, *backend.BackendResult) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	store := ledger.NewStore(res.Blobs)
	if err := load(store, ctx); err != nil {
		logger.Error("Failed to load ledger", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeStorage)
		_ = res.Close()
		os.Exit(1)
	}

	snap := store.Snapshot()
	logger.Info("Ledger loaded",
		"backend", backendCfg.Type,
		"debts", len(snap.Debts),
		"payments", len(snap.Payments),
		applog.FieldGeneration, store.Generation())

	return store, res
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has run.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
