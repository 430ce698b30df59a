package google

import (
	"strings"
	"time"

	"payoff/internal/core"

	"github.com/shopspring/decimal"
)

const (
	rowKindReport  = "report"
	rowKindPayment = "payment"
)

// reportRows flattens a report into sheet rows. Amounts are written as plain
// decimal strings and USER_ENTERED lets Sheets type them as numbers. Free
// text goes through textCell so it is never evaluated as a formula.
//
//	report  | generatedAt | debtId | creditor | total | paid | remaining | progress%
//	payment | generatedAt | debtId | date     | amount | note
func reportRows(r core.Report) [][]any {
	generated := r.GeneratedAt.UTC().Format(time.RFC3339)
	rows := make([][]any, 0, len(r.RecentPayments)+1)
	rows = append(rows, []any{
		rowKindReport,
		generated,
		r.DebtID,
		textCell(r.CreditorName),
		r.TotalAmount.String(),
		r.TotalPaid.String(),
		r.Remaining.String(),
		decimal.NewFromFloat(r.Progress).StringFixed(1),
	})
	for _, p := range r.RecentPayments {
		rows = append(rows, []any{
			rowKindPayment,
			generated,
			r.DebtID,
			p.Date.String(),
			p.Amount.String(),
			textCell(p.Note),
		})
	}
	return rows
}

// textCell quotes values Sheets would otherwise parse as a formula.
func textCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}
