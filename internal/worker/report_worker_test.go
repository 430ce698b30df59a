package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"payoff/internal/amqp"
	"payoff/internal/core"
	"payoff/internal/ledger"
	"payoff/internal/storage/memory"
)

type fakeExporter struct {
	reports []core.Report
	err     error
}

func (f *fakeExporter) ExportReport(_ context.Context, r core.Report) error {
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, r)
	return nil
}

// seedLedger writes a ledger through one store, the way the API process
// would, and returns the shared blobs.
func seedLedger(t *testing.T) (*memory.Store, core.Debt) {
	t.Helper()
	ctx := context.Background()
	blobs := memory.New()
	writer := ledger.NewStore(blobs)
	if err := writer.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	d := core.NewDebt("Ana", core.Cents(100000), time.Now())
	err := writer.Mutate(ctx, func(tx *ledger.Tx) error {
		if err := tx.AddDebt(d); err != nil {
			return err
		}
		for i := 1; i <= 7; i++ {
			p := core.NewPayment(d.ID, core.Cents(1000), core.NewDate(2024, 1, i), "")
			if err := tx.AddPayment(p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return blobs, d
}

func TestHandleLedgerChangeExportsReport(t *testing.T) {
	blobs, d := seedLedger(t)
	exp := &fakeExporter{}
	w := NewReportWorker(ledger.NewStore(blobs), exp, 3)

	msg := amqp.NewLedgerChangeMessage(amqp.PaymentAdded, d.ID, "p", 2)
	if err := w.HandleLedgerChange(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(exp.reports) != 1 {
		t.Fatalf("expected one export, got %d", len(exp.reports))
	}
	r := exp.reports[0]
	if r.DebtID != d.ID || r.TotalPaid.Cents != 7000 || len(r.RecentPayments) != 3 {
		t.Fatalf("unexpected report %+v", r)
	}
	if !r.RecentPayments[0].Date.Equal(core.NewDate(2024, 1, 7).Time) {
		t.Errorf("most recent payment should come first, got %s", r.RecentPayments[0].Date)
	}
}

func TestHandleLedgerChangeSkips(t *testing.T) {
	blobs, d := seedLedger(t)

	tests := []struct {
		name string
		msg  *amqp.LedgerChangeMessage
	}{
		{"deleted debt", amqp.NewLedgerChangeMessage(amqp.DebtDeleted, d.ID, "", 3)},
		{"unknown debt", amqp.NewLedgerChangeMessage(amqp.DebtTotalEdited, "gone", "", 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &fakeExporter{}
			w := NewReportWorker(ledger.NewStore(blobs), exp, 0)
			if err := w.HandleLedgerChange(context.Background(), tt.msg); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(exp.reports) != 0 {
				t.Fatalf("expected no export, got %d", len(exp.reports))
			}
		})
	}
}

func TestHandleLedgerChangeExportError(t *testing.T) {
	blobs, d := seedLedger(t)
	exp := &fakeExporter{err: errors.New("quota")}
	w := NewReportWorker(ledger.NewStore(blobs), exp, 0)

	err := w.HandleLedgerChange(context.Background(), amqp.NewLedgerChangeMessage(amqp.ReportRequested, d.ID, "", 1))
	if err == nil {
		t.Fatal("export failure must be returned so the message is requeued")
	}
}

func TestExportAll(t *testing.T) {
	blobs, _ := seedLedger(t)
	exp := &fakeExporter{}
	w := NewReportWorker(ledger.NewStore(blobs), exp, 0)

	if err := w.ExportAll(context.Background()); err != nil {
		t.Fatalf("export all: %v", err)
	}
	if len(exp.reports) != 1 || len(exp.reports[0].RecentPayments) != core.DefaultRecentPayments {
		t.Fatalf("unexpected exports %+v", exp.reports)
	}

	empty := NewReportWorker(ledger.NewStore(memory.New()), exp, 0)
	if err := empty.ExportAll(context.Background()); err != nil {
		t.Fatalf("empty ledger: %v", err)
	}
}

func TestExportAllLeavesLegacyDataToOwner(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	_ = blobs.Set(ctx, ledger.LegacySettingsKey,
		[]byte(`{"isSet":true,"creditorName":"Ana","totalAmount":500,"startDate":"2024-01-01"}`))

	exp := &fakeExporter{}
	w := NewReportWorker(ledger.NewStore(blobs), exp, 5)
	if err := w.ExportAll(ctx); err != nil {
		t.Fatalf("export all: %v", err)
	}
	if len(exp.reports) != 0 {
		t.Fatalf("nothing to export before the owner migrates, got %d", len(exp.reports))
	}
	if _, found, _ := blobs.Get(ctx, ledger.DebtsKey); found {
		t.Fatalf("worker must not write the ledger")
	}
}
