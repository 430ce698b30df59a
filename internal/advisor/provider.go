// Package advisor produces short natural-language assessments of a debt's
// payoff trajectory through an external text-generation provider.
package advisor

import "context"

// Provider is the text-generation port. Implementations may block on network
// I/O and must honour ctx.
type Provider interface {
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error)
}

// AnalysisRequest is what the provider sees about a debt. Amounts are decimal
// strings so that prompts never carry float artefacts.
type AnalysisRequest struct {
	CreditorName       string         `json:"creditor_name"`
	TotalAmount        string         `json:"total_amount"`
	TotalPaid          string         `json:"total_paid"`
	Remaining          string         `json:"remaining"`
	ProgressPercentage float64        `json:"progress_percentage"`
	StartDate          string         `json:"start_date"`
	Today              string         `json:"today"`
	Payments           []PaymentInput `json:"payments"`
}

type PaymentInput struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

type AnalysisResponse struct {
	Message             string `json:"message"`
	EstimatedCompletion string `json:"estimated_completion"`
	Tone                string `json:"tone"`
}
