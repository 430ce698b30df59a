package google

import (
	"context"
	"testing"
	"time"

	"payoff/internal/core"
)

func TestReportRows(t *testing.T) {
	r := core.Report{
		DebtID:       "d1",
		CreditorName: "Ana",
		TotalAmount:  core.Cents(100000),
		TotalPaid:    core.Cents(33333),
		Remaining:    core.Cents(66667),
		Progress:     33.333,
		RecentPayments: []core.Payment{
			{ID: "p2", DebtID: "d1", Date: core.NewDate(2024, 3, 1), Amount: core.Cents(13333), Note: "march"},
			{ID: "p1", DebtID: "d1", Date: core.NewDate(2024, 2, 1), Amount: core.Cents(20000)},
		},
		GeneratedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	rows := reportRows(r)
	if len(rows) != 3 {
		t.Fatalf("expected summary + 2 payment rows, got %d", len(rows))
	}

	summary := rows[0]
	want := []any{"report", "2024-03-02T10:00:00Z", "d1", "Ana", "1000.00", "333.33", "666.67", "33.3"}
	if len(summary) != len(want) {
		t.Fatalf("summary row = %v", summary)
	}
	for i := range want {
		if summary[i] != want[i] {
			t.Errorf("summary[%d] = %v, want %v", i, summary[i], want[i])
		}
	}

	first := rows[1]
	if first[0] != "payment" || first[3] != "2024-03-01" || first[4] != "133.33" || first[5] != "march" {
		t.Errorf("unexpected payment row %v", first)
	}
}

func TestReportRowsQuoteFormulaText(t *testing.T) {
	r := core.Report{
		DebtID:       "d1",
		CreditorName: "=IMPORTXML(\"http://x\")",
		TotalAmount:  core.Cents(100),
		RecentPayments: []core.Payment{
			{ID: "p1", DebtID: "d1", Date: core.NewDate(2024, 2, 1), Amount: core.Cents(100), Note: "@cash"},
			{ID: "p2", DebtID: "d1", Date: core.NewDate(2024, 2, 2), Amount: core.Cents(100), Note: "plain"},
		},
	}
	rows := reportRows(r)
	if rows[0][3] != `'=IMPORTXML("http://x")` {
		t.Errorf("creditor not quoted: %v", rows[0][3])
	}
	if rows[1][5] != "'@cash" || rows[2][5] != "plain" {
		t.Errorf("unexpected notes %v %v", rows[1][5], rows[2][5])
	}
}

func TestTextCell(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"Ana":     "Ana",
		"=1+1":    "'=1+1",
		"+39 333": "'+39 333",
		"-5":      "'-5",
		"@home":   "'@home",
	}
	for in, want := range tests {
		if got := textCell(in); got != want {
			t.Errorf("textCell(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReportRowsNoPayments(t *testing.T) {
	rows := reportRows(core.Report{DebtID: "d1", TotalAmount: core.Cents(100)})
	if len(rows) != 1 || rows[0][0] != "report" {
		t.Fatalf("expected only the summary row, got %v", rows)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Payoff")
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := New(context.Background(), "sheet-id", ""); err == nil {
		t.Fatal("expected missing credentials error")
	}
}

func TestExportReport_Uninitialized(t *testing.T) {
	c := &Client{reportSheet: DefaultReportSheet}
	if err := c.ExportReport(context.Background(), core.Report{DebtID: "d1"}); err == nil {
		t.Fatal("expected error without a sheets service")
	}
}
