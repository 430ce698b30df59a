package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"payoff/internal/amqp"
	"payoff/internal/cli"
	applog "payoff/internal/log"
	gsheet "payoff/internal/sheets/google"
	"payoff/internal/worker"
)

// fullExportInterval re-exports every debt so sheets edited by hand or
// missed messages converge without a restart.
const fullExportInterval = 6 * time.Hour

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info", "text", applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}
	if !cfg.ExportEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the report worker")
		os.Exit(1)
	}
	// The worker reads the ledger the server writes, which only a shared
	// database can provide.
	if cfg.DataBackend != "sqlite" {
		logger.Error("Report worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx := context.Background()
	store, backendRes := cli.OpenLedgerReader(ctx, logger, cfg)

	exporter, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err)
		_ = backendRes.Close()
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		_ = backendRes.Close()
		os.Exit(1)
	}

	reportWorker := worker.NewReportWorker(store, exporter, cfg.ReportRecentPayments)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("Error closing AMQP client", applog.FieldError, err)
		}
	})

	logger.Info("Starting payoff report worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"recent_payments", cfg.ReportRecentPayments)

	if err := reportWorker.ExportAll(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Startup export failed", applog.FieldError, err, applog.FieldOperation, applog.OpStartup)
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerChanges(gctx, reportWorker.HandleLedgerChange)
	})
	g.Go(func() error {
		ticker := time.NewTicker(fullExportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := reportWorker.ExportAll(gctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Periodic export failed", applog.FieldError, err, applog.FieldOperation, applog.OpExport)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Report worker stopped with error", applog.FieldError, err)
	}

	cli.WaitForShutdown(runCtx, done)
	if err := backendRes.Close(); err != nil {
		logger.Error("Error closing backend", applog.FieldError, err)
	}
	logger.Info("Report worker stopped")
}
