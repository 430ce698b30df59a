package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"payoff/internal/amqp"
	"payoff/internal/core"
	"payoff/internal/ledger"
	"payoff/internal/sheets"
)

var (
	ErrNoSelection       = errors.New("no debt selected")
	ErrExportUnavailable = errors.New("report export not configured")
)

type (
	// ChangePublisher announces committed mutations. *amqp.Client satisfies it.
	ChangePublisher interface {
		PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
	}

	// Advisor produces an assessment for one debt. On failure it returns the
	// fallback result alongside the error.
	Advisor interface {
		Analyze(ctx context.Context, debt core.Debt, payments []core.Payment) (core.AnalysisResult, error)
	}

	// AnalysisToken identifies the ledger state an analysis was computed from.
	AnalysisToken struct {
		DebtID     string `json:"debtId"`
		Generation uint64 `json:"generation"`
	}

	// DeletionPreview describes what a confirmed deletion would remove.
	DeletionPreview struct {
		DebtID       string `json:"debtId"`
		CreditorName string `json:"creditorName"`
		PaymentCount int    `json:"paymentCount"`
	}

	PaymentDeletionPreview struct {
		Payment      core.Payment `json:"payment"`
		CreditorName string       `json:"creditorName"`
	}

	DebtDetail struct {
		core.DebtSummary
		History  []core.BalancePoint `json:"history"`
		Payments []core.Payment      `json:"payments"`
	}

	AnalysisStatus string

	AnalysisView struct {
		Status AnalysisStatus       `json:"status"`
		Token  AnalysisToken        `json:"token"`
		Result *core.AnalysisResult `json:"result,omitempty"`
	}

	// PendingAnalysis is returned by RequestAnalysis. Done is closed once the
	// result has been applied or discarded.
	PendingAnalysis struct {
		Token AnalysisToken
		done  chan struct{}
		res   core.AnalysisResult
	}
)

const (
	AnalysisNone    AnalysisStatus = "none"
	AnalysisPending AnalysisStatus = "pending"
	AnalysisReady   AnalysisStatus = "ready"
)

// Options tune a DebtService. The zero value is usable.
type Options struct {
	Publisher      ChangePublisher
	Advisor        Advisor
	Exporter       sheets.ReportExporter
	RecentPayments int
	Now            func() time.Time
}

// DebtService is the command side of the ledger. It validates input, mutates
// the store, announces changes and owns the selection and analysis cache.
type DebtService struct {
	store     *ledger.Store
	publisher ChangePublisher
	advisor   Advisor
	exporter  sheets.ReportExporter
	recent    int
	now       func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	selected string
	pending  *AnalysisToken
	cached   *cachedAnalysis
}

type cachedAnalysis struct {
	token  AnalysisToken
	result core.AnalysisResult
}

func NewDebtService(store *ledger.Store, opts Options) *DebtService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RecentPayments <= 0 {
		opts.RecentPayments = core.DefaultRecentPayments
	}
	return &DebtService{
		store:     store,
		publisher: opts.Publisher,
		advisor:   opts.Advisor,
		exporter:  opts.Exporter,
		recent:    opts.RecentPayments,
		now:       opts.Now,
	}
}

// CreateDebt adds a debt starting now.
func (s *DebtService) CreateDebt(ctx context.Context, creditorName string, total core.Money) (core.Debt, error) {
	d := core.NewDebt(creditorName, total, s.now())
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}
	if err := s.store.Mutate(ctx, func(tx *ledger.Tx) error { return tx.AddDebt(d) }); err != nil {
		return core.Debt{}, fmt.Errorf("create debt: %w", err)
	}
	s.afterMutation(ctx, amqp.DebtCreated, d.ID, "")
	return d, nil
}

// ValidateDeletion reports what deleting debtID would cascade to without
// touching the store.
func (s *DebtService) ValidateDeletion(debtID string) (DeletionPreview, error) {
	snap := s.store.Snapshot()
	d, ok := snap.Debt(debtID)
	if !ok {
		return DeletionPreview{}, core.DebtNotFound(debtID)
	}
	return DeletionPreview{
		DebtID:       d.ID,
		CreditorName: d.CreditorName,
		PaymentCount: len(snap.PaymentsFor(d.ID)),
	}, nil
}

// DeleteDebt removes a debt and all its payments. Without confirmed it only
// checks existence and returns core.ErrConfirmationRequired.
func (s *DebtService) DeleteDebt(ctx context.Context, debtID string, confirmed bool) (DeletionPreview, error) {
	preview, err := s.ValidateDeletion(debtID)
	if err != nil {
		return DeletionPreview{}, err
	}
	if !confirmed {
		return preview, core.ErrConfirmationRequired
	}

	var removed int
	err = s.store.Mutate(ctx, func(tx *ledger.Tx) error {
		var err error
		removed, err = tx.RemoveDebt(debtID)
		return err
	})
	if err != nil {
		return DeletionPreview{}, fmt.Errorf("delete debt: %w", err)
	}
	preview.PaymentCount = removed

	s.mu.Lock()
	if s.selected == debtID {
		s.selected = ""
	}
	s.mu.Unlock()

	s.afterMutation(ctx, amqp.DebtDeleted, debtID, "")
	slog.InfoContext(ctx, "Debt deleted", "debt_id", debtID, "payments_removed", removed)
	return preview, nil
}

// AddPayment records a payment against an existing debt.
func (s *DebtService) AddPayment(ctx context.Context, debtID string, amount core.Money, date core.Date, note string) (core.Payment, error) {
	p := core.NewPayment(debtID, amount, date, note)
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if err := s.store.Mutate(ctx, func(tx *ledger.Tx) error { return tx.AddPayment(p) }); err != nil {
		return core.Payment{}, fmt.Errorf("add payment: %w", err)
	}
	s.afterMutation(ctx, amqp.PaymentAdded, debtID, p.ID)
	return p, nil
}

func (s *DebtService) ValidatePaymentDeletion(paymentID string) (PaymentDeletionPreview, error) {
	p, ok := s.store.Payment(paymentID)
	if !ok {
		return PaymentDeletionPreview{}, core.PaymentNotFound(paymentID)
	}
	preview := PaymentDeletionPreview{Payment: p}
	if d, ok := s.store.Debt(p.DebtID); ok {
		preview.CreditorName = d.CreditorName
	}
	return preview, nil
}

// DeletePayment removes a single payment, gated on confirmed like DeleteDebt.
func (s *DebtService) DeletePayment(ctx context.Context, paymentID string, confirmed bool) (core.Payment, error) {
	preview, err := s.ValidatePaymentDeletion(paymentID)
	if err != nil {
		return core.Payment{}, err
	}
	if !confirmed {
		return preview.Payment, core.ErrConfirmationRequired
	}

	var removed core.Payment
	err = s.store.Mutate(ctx, func(tx *ledger.Tx) error {
		var err error
		removed, err = tx.RemovePayment(paymentID)
		return err
	})
	if err != nil {
		return core.Payment{}, fmt.Errorf("delete payment: %w", err)
	}
	s.afterMutation(ctx, amqp.PaymentDeleted, removed.DebtID, removed.ID)
	slog.InfoContext(ctx, "Payment deleted", "payment_id", removed.ID, "debt_id", removed.DebtID)
	return removed, nil
}

// EditDebtTotal replaces the total of a debt. Payments are untouched, so the
// new total may be below what has already been paid.
func (s *DebtService) EditDebtTotal(ctx context.Context, debtID string, total core.Money) (core.Debt, error) {
	if err := total.Validate(); err != nil {
		return core.Debt{}, &core.ValidationError{Field: "totalAmount", Err: err}
	}
	var updated core.Debt
	err := s.store.Mutate(ctx, func(tx *ledger.Tx) error {
		var err error
		updated, err = tx.SetDebtTotal(debtID, total)
		return err
	})
	if err != nil {
		return core.Debt{}, fmt.Errorf("edit debt total: %w", err)
	}
	s.afterMutation(ctx, amqp.DebtTotalEdited, debtID, "")
	slog.InfoContext(ctx, "Debt total edited", "debt_id", debtID, "total", total.String())
	return updated, nil
}

// SelectDebt makes debtID the subject of analysis requests. An empty id
// clears the selection.
func (s *DebtService) SelectDebt(debtID string) error {
	debtID = strings.TrimSpace(debtID)
	if debtID != "" {
		if _, ok := s.store.Debt(debtID); !ok {
			return core.DebtNotFound(debtID)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != debtID {
		s.selected = debtID
		s.invalidateLocked()
	}
	return nil
}

// Selected returns the selected debt, if it still exists.
func (s *DebtService) Selected() (core.Debt, bool) {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == "" {
		return core.Debt{}, false
	}
	return s.store.Debt(id)
}

// Dashboard summarizes every debt.
func (s *DebtService) Dashboard() core.Dashboard {
	return s.store.Snapshot().Dashboard()
}

// Detail returns the summary, balance history and payments of one debt.
func (s *DebtService) Detail(debtID string) (DebtDetail, error) {
	snap := s.store.Snapshot()
	d, ok := snap.Debt(debtID)
	if !ok {
		return DebtDetail{}, core.DebtNotFound(debtID)
	}
	return DebtDetail{
		DebtSummary: snap.Summarize(d),
		History:     snap.BalanceHistory(d),
		Payments:    snap.PaymentsFor(d.ID),
	}, nil
}

// Report builds the export snapshot of one debt.
func (s *DebtService) Report(debtID string) (core.Report, error) {
	snap := s.store.Snapshot()
	d, ok := snap.Debt(debtID)
	if !ok {
		return core.Report{}, core.DebtNotFound(debtID)
	}
	return snap.Report(d, s.recent), nil
}

// ExportReport builds and exports the report synchronously when an exporter
// is configured, and otherwise queues a report request for the worker. queued
// reports which of the two happened.
func (s *DebtService) ExportReport(ctx context.Context, debtID string) (r core.Report, queued bool, err error) {
	r, err = s.Report(debtID)
	if err != nil {
		return core.Report{}, false, err
	}
	switch {
	case s.exporter != nil:
		if err := s.exporter.ExportReport(ctx, r); err != nil {
			return core.Report{}, false, fmt.Errorf("export report: %w", err)
		}
		return r, false, nil
	case s.publisher != nil:
		msg := amqp.NewLedgerChangeMessage(amqp.ReportRequested, debtID, "", s.store.Generation())
		if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
			return core.Report{}, false, fmt.Errorf("queue report export: %w", err)
		}
		return r, true, nil
	default:
		return core.Report{}, false, ErrExportUnavailable
	}
}

// RequestAnalysis dispatches an advisory call for the selected debt. The
// result is applied to the cache only if neither the selection nor the
// ledger changed in the meantime.
func (s *DebtService) RequestAnalysis(ctx context.Context) (*PendingAnalysis, error) {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == "" {
		return nil, ErrNoSelection
	}

	snap := s.store.Snapshot()
	d, ok := snap.Debt(id)
	if !ok {
		return nil, core.DebtNotFound(id)
	}
	token := AnalysisToken{DebtID: id, Generation: snap.Generation}
	payments := snap.PaymentsFor(id)

	s.mu.Lock()
	if s.cached != nil && s.cached.token == token {
		res := s.cached.result
		s.mu.Unlock()
		done := make(chan struct{})
		close(done)
		return &PendingAnalysis{Token: token, done: done, res: res}, nil
	}
	s.pending = &token
	s.mu.Unlock()

	pa := &PendingAnalysis{Token: token, done: make(chan struct{})}
	callCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(pa.done)
		key := fmt.Sprintf("%s@%d", token.DebtID, token.Generation)
		v, _, _ := s.group.Do(key, func() (any, error) {
			return s.analyze(callCtx, d, payments), nil
		})
		pa.res = v.(core.AnalysisResult)
		s.applyAnalysis(callCtx, token, pa.res)
	}()
	return pa, nil
}

func (s *DebtService) analyze(ctx context.Context, d core.Debt, payments []core.Payment) core.AnalysisResult {
	if s.advisor == nil {
		return core.UnavailableAnalysis()
	}
	res, err := s.advisor.Analyze(ctx, d, payments)
	if err != nil {
		slog.WarnContext(ctx, "Advisory unavailable, using fallback", "debt_id", d.ID, "error", err)
		return core.UnavailableAnalysis()
	}
	return res
}

func (s *DebtService) applyAnalysis(ctx context.Context, token AnalysisToken, res core.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && *s.pending == token {
		s.pending = nil
	}
	if s.selected != token.DebtID || s.store.Generation() != token.Generation {
		slog.DebugContext(ctx, "Discarding stale analysis",
			"debt_id", token.DebtID,
			"generation", token.Generation)
		return
	}
	s.cached = &cachedAnalysis{token: token, result: res}
}

// Analysis returns the cached analysis for the current selection.
func (s *DebtService) Analysis() AnalysisView {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := AnalysisToken{DebtID: s.selected, Generation: s.store.Generation()}
	switch {
	case s.cached != nil && s.cached.token == token:
		res := s.cached.result
		return AnalysisView{Status: AnalysisReady, Token: token, Result: &res}
	case s.pending != nil && *s.pending == token:
		return AnalysisView{Status: AnalysisPending, Token: token}
	default:
		return AnalysisView{Status: AnalysisNone, Token: token}
	}
}

// Wait blocks until the analysis completes or ctx is done.
func (p *PendingAnalysis) Wait(ctx context.Context) (core.AnalysisResult, error) {
	select {
	case <-p.done:
		return p.res, nil
	case <-ctx.Done():
		return core.AnalysisResult{}, ctx.Err()
	}
}

// Done is closed once the analysis has finished.
func (p *PendingAnalysis) Done() <-chan struct{} { return p.done }

func (s *DebtService) afterMutation(ctx context.Context, kind amqp.ChangeKind, debtID, paymentID string) {
	s.mu.Lock()
	s.invalidateLocked()
	s.mu.Unlock()

	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerChangeMessage(kind, debtID, paymentID, s.store.Generation())
	if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
		// The mutation is committed; subscribers catch up on the next change.
		slog.ErrorContext(ctx, "Failed to publish ledger change", "kind", kind, "debt_id", debtID, "error", err)
	}
}

func (s *DebtService) invalidateLocked() {
	s.cached = nil
	s.pending = nil
}
