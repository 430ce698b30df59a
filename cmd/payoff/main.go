package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"payoff/internal/advisor"
	"payoff/internal/amqp"
	"payoff/internal/cli"
	"payoff/internal/config"
	apphttp "payoff/internal/http"
	applog "payoff/internal/log"
	"payoff/internal/services"
	gsheet "payoff/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info", "text", applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentApp)

	ctx := context.Background()
	store, backendRes := cli.OpenLedger(ctx, logger, cfg)

	opts := services.Options{RecentPayments: cfg.ReportRecentPayments}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, change events disabled", applog.FieldError, err)
		} else {
			amqpClient = c
			opts.Publisher = c
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	if adv := newAdvisor(ctx, logger, cfg); adv != nil {
		opts.Advisor = adv
	}

	// With a broker the worker owns Sheets writes; without one the server
	// exports directly.
	if cfg.ExportEnabled() && amqpClient == nil {
		exporter, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheetName)
		if err != nil {
			logger.Warn("Failed to initialize Google Sheets exporter, report export disabled", applog.FieldError, err)
		} else {
			opts.Exporter = exporter
		}
	}

	svc := services.NewDebtService(store, opts)
	srv := apphttp.NewServer(":"+cfg.Port, svc, logger)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Error closing AMQP client", applog.FieldError, err)
			}
		}
		if err := backendRes.Close(); err != nil {
			logger.Error("Error closing backend", applog.FieldError, err)
		}
	})

	logger.Info("Starting payoff server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"change_events", amqpClient != nil,
		"advisory", opts.Advisor != nil,
		"direct_export", opts.Exporter != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// newAdvisor returns nil when no provider is configured so the service
// falls back to its unavailable analysis without calling out.
func newAdvisor(ctx context.Context, logger *applog.Logger, cfg *config.Config) *advisor.Client {
	if !cfg.AdvisoryEnabled() {
		return nil
	}
	provider, err := advisor.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("Failed to initialize advisory provider, analysis disabled", applog.FieldError, err)
		return nil
	}
	logger.Info("Advisory provider initialized", "model", cfg.GeminiModel, "timeout", cfg.AdvisoryTimeout)
	return advisor.New(provider, cfg.AdvisoryTimeout)
}
