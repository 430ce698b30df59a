package advisor

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"payoff/internal/core"
)

const DefaultTimeout = 15 * time.Second

var errNotConfigured = errors.New("no advisory provider configured")

// Client wraps a Provider with a per-call timeout and result normalisation.
// A nil provider is valid and always yields the unavailable result.
type Client struct {
	provider Provider
	timeout  time.Duration
}

func New(provider Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{provider: provider, timeout: timeout}
}

// Enabled reports whether a provider is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.provider != nil
}

// Analyze asks the provider for an assessment of debt. On any failure it
// returns the neutral unavailable result together with an
// *core.AdvisoryUnavailableError, so callers can use the result unconditionally.
func (c *Client) Analyze(ctx context.Context, debt core.Debt, payments []core.Payment) (core.AnalysisResult, error) {
	if !c.Enabled() {
		return core.UnavailableAnalysis(), &core.AdvisoryUnavailableError{Reason: "not configured", Err: errNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Analyze(ctx, BuildRequest(debt, payments, core.Today()))
	if err != nil {
		reason := "provider error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		return core.UnavailableAnalysis(), &core.AdvisoryUnavailableError{Reason: reason, Err: err}
	}

	result := normalize(resp)
	slog.DebugContext(ctx, "Advisory analysis completed",
		"debt_id", debt.ID,
		"tone", result.Tone,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// BuildRequest summarises a debt for the provider. Payments are listed
// oldest first.
func BuildRequest(debt core.Debt, payments []core.Payment, today core.Date) AnalysisRequest {
	snap := core.Snapshot{Debts: []core.Debt{debt}, Payments: payments}
	sum := snap.Summarize(debt)

	payments = snap.PaymentsFor(debt.ID)
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Date.Before(payments[j].Date.Time)
	})
	inputs := make([]PaymentInput, 0, len(payments))
	for _, p := range payments {
		inputs = append(inputs, PaymentInput{Date: p.Date.String(), Amount: p.Amount.String(), Note: p.Note})
	}

	return AnalysisRequest{
		CreditorName:       debt.CreditorName,
		TotalAmount:        debt.TotalAmount.String(),
		TotalPaid:          sum.TotalPaid.String(),
		Remaining:          sum.Remaining.String(),
		ProgressPercentage: sum.Progress,
		StartDate:          debt.StartDate.Format("2006-01-02"),
		Today:              today.String(),
		Payments:           inputs,
	}
}

// normalize clamps provider output to the closed tone set and never returns
// an empty message.
func normalize(resp AnalysisResponse) core.AnalysisResult {
	msg := strings.TrimSpace(resp.Message)
	if msg == "" {
		return core.UnavailableAnalysis()
	}
	tone := core.Tone(strings.ToLower(strings.TrimSpace(resp.Tone)))
	if !tone.IsValid() {
		tone = core.ToneNeutral
	}
	return core.AnalysisResult{
		Message:             msg,
		EstimatedCompletion: strings.TrimSpace(resp.EstimatedCompletion),
		Tone:                tone,
	}
}
