package sheets

import (
	"context"

	"payoff/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportExporter publishes a report snapshot somewhere a human can read it.
	ReportExporter interface {
		ExportReport(ctx context.Context, r core.Report) error
	}
)
