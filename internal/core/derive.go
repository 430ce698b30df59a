package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRecentPayments is how many payments a Report lists.
const DefaultRecentPayments = 5

var hundred = decimal.NewFromInt(100)

type (
	// Snapshot is an immutable view of the ledger. Every derived figure is
	// recomputed from it; nothing is cached across mutations.
	Snapshot struct {
		Debts      []Debt
		Payments   []Payment
		Generation uint64
	}

	// BalancePoint is one step of the balance history chart.
	BalancePoint struct {
		Date    Date  `json:"date"`
		Balance Money `json:"balance"`
		Paid    Money `json:"paid"`
	}

	DebtSummary struct {
		Debt         Debt    `json:"debt"`
		TotalPaid    Money   `json:"totalPaid"`
		Remaining    Money   `json:"remaining"`
		Progress     float64 `json:"progressPercentage"`
		PaymentCount int     `json:"paymentCount"`
	}

	Dashboard struct {
		Debts          []DebtSummary `json:"debts"`
		TotalAmount    Money         `json:"totalAmount"`
		TotalPaid      Money         `json:"totalPaid"`
		TotalRemaining Money         `json:"totalRemaining"`
	}

	// Report is what an export collaborator needs to render a snapshot.
	Report struct {
		DebtID         string    `json:"debtId"`
		CreditorName   string    `json:"creditorName"`
		TotalAmount    Money     `json:"totalAmount"`
		TotalPaid      Money     `json:"totalPaid"`
		Remaining      Money     `json:"remaining"`
		Progress       float64   `json:"progressPercentage"`
		RecentPayments []Payment `json:"recentPayments"`
		GeneratedAt    time.Time `json:"generatedAt"`
	}
)

// Debt looks a debt up by id.
func (s Snapshot) Debt(id string) (Debt, bool) {
	for _, d := range s.Debts {
		if d.ID == id {
			return d, true
		}
	}
	return Debt{}, false
}

// PaymentsFor returns the payments of debtID in ledger order.
func (s Snapshot) PaymentsFor(debtID string) []Payment {
	out := make([]Payment, 0)
	for _, p := range s.Payments {
		if p.DebtID == debtID {
			out = append(out, p)
		}
	}
	return out
}

func (s Snapshot) TotalPaid(debtID string) Money {
	var total Money
	for _, p := range s.Payments {
		if p.DebtID == debtID {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// Remaining is the outstanding amount, floored at zero on overpayment.
func (s Snapshot) Remaining(d Debt) Money {
	return d.TotalAmount.Sub(s.TotalPaid(d.ID))
}

// ProgressPercentage is paid/total*100 capped at 100.
func (s Snapshot) ProgressPercentage(d Debt) float64 {
	return progress(s.TotalPaid(d.ID), d.TotalAmount)
}

func progress(paid, total Money) float64 {
	if total.Cents <= 0 {
		return 0
	}
	pct := paid.Decimal().Div(total.Decimal()).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.InexactFloat64()
}

// BalanceHistory returns the start point followed by one point per payment in
// ascending date order (ties keep ledger order). Balance never increases.
func (s Snapshot) BalanceHistory(d Debt) []BalancePoint {
	payments := s.PaymentsFor(d.ID)
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Date.Before(payments[j].Date.Time)
	})

	history := make([]BalancePoint, 0, len(payments)+1)
	history = append(history, BalancePoint{Date: d.StartDate, Balance: d.TotalAmount})

	var paidSoFar Money
	for _, p := range payments {
		paidSoFar = paidSoFar.Add(p.Amount)
		history = append(history, BalancePoint{
			Date:    p.Date,
			Balance: d.TotalAmount.Sub(paidSoFar),
			Paid:    p.Amount,
		})
	}
	return history
}

func (s Snapshot) Summarize(d Debt) DebtSummary {
	paid := s.TotalPaid(d.ID)
	count := 0
	for _, p := range s.Payments {
		if p.DebtID == d.ID {
			count++
		}
	}
	return DebtSummary{
		Debt:         d,
		TotalPaid:    paid,
		Remaining:    d.TotalAmount.Sub(paid),
		Progress:     progress(paid, d.TotalAmount),
		PaymentCount: count,
	}
}

// Dashboard summarizes every debt plus aggregate totals.
func (s Snapshot) Dashboard() Dashboard {
	dash := Dashboard{Debts: make([]DebtSummary, 0, len(s.Debts))}
	for _, d := range s.Debts {
		sum := s.Summarize(d)
		dash.Debts = append(dash.Debts, sum)
		dash.TotalAmount = dash.TotalAmount.Add(d.TotalAmount)
		dash.TotalPaid = dash.TotalPaid.Add(sum.TotalPaid)
		dash.TotalRemaining = dash.TotalRemaining.Add(sum.Remaining)
	}
	return dash
}

// Report builds the export snapshot with the limit most recent payments,
// newest first. On equal dates the later-recorded payment comes first.
func (s Snapshot) Report(d Debt, limit int) Report {
	if limit <= 0 {
		limit = DefaultRecentPayments
	}
	payments := s.PaymentsFor(d.ID)
	for i, j := 0, len(payments)-1; i < j; i, j = i+1, j-1 {
		payments[i], payments[j] = payments[j], payments[i]
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Date.After(payments[j].Date.Time)
	})
	if len(payments) > limit {
		payments = payments[:limit]
	}

	sum := s.Summarize(d)
	return Report{
		DebtID:         d.ID,
		CreditorName:   d.CreditorName,
		TotalAmount:    d.TotalAmount,
		TotalPaid:      sum.TotalPaid,
		Remaining:      sum.Remaining,
		Progress:       sum.Progress,
		RecentPayments: payments,
		GeneratedAt:    time.Now().UTC(),
	}
}
