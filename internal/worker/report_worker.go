package worker

import (
	"context"
	"fmt"
	"log/slog"

	"payoff/internal/amqp"
	"payoff/internal/ledger"
	"payoff/internal/sheets"
)

// ReportWorker keeps exported reports in step with the ledger. The ledger is
// owned by another process, so every message triggers a read-only reload.
type ReportWorker struct {
	store    *ledger.Store
	exporter sheets.ReportExporter
	recent   int
}

func NewReportWorker(store *ledger.Store, exporter sheets.ReportExporter, recentPayments int) *ReportWorker {
	return &ReportWorker{store: store, exporter: exporter, recent: recentPayments}
}

// HandleLedgerChange re-exports the report of the debt a message refers to.
// A debt that no longer exists is not an error: it was deleted after the
// message was published.
func (w *ReportWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"kind", msg.Kind,
		"debt_id", msg.DebtID,
		"generation", msg.Generation)

	if !msg.AffectsReport() {
		return nil
	}
	if err := w.store.Refresh(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}

	snap := w.store.Snapshot()
	d, ok := snap.Debt(msg.DebtID)
	if !ok {
		slog.WarnContext(ctx, "Debt gone before export, skipping", "debt_id", msg.DebtID)
		return nil
	}
	if err := w.exporter.ExportReport(ctx, snap.Report(d, w.recent)); err != nil {
		return fmt.Errorf("export report for %s: %w", d.ID, err)
	}
	return nil
}

// ExportAll exports every debt once. It runs on startup, covering changes
// published while the worker was down, and periodically after that.
func (w *ReportWorker) ExportAll(ctx context.Context) error {
	if err := w.store.Refresh(ctx); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	snap := w.store.Snapshot()
	if len(snap.Debts) == 0 {
		slog.InfoContext(ctx, "No debts to export")
		return nil
	}

	exported, failed := 0, 0
	for _, d := range snap.Debts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.exporter.ExportReport(ctx, snap.Report(d, w.recent)); err != nil {
			slog.ErrorContext(ctx, "Export failed", "debt_id", d.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Full export completed", "exported", exported, "failed", failed)
	return nil
}
