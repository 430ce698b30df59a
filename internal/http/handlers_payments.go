package http

import (
	"net/http"
	"sync/atomic"

	"payoff/internal/core"
	applog "payoff/internal/log"
)

// handleAddPayment records a payment. The date defaults to today and the
// amount may be a JSON number or a decimal string with dot or comma.
func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	debtID := pathID(r)
	var req addPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, applog.OpCreate, nil, nil)
		return
	}

	amount, err := req.Amount.Money("amount")
	if err != nil {
		s.respondError(w, r, err, applog.OpCreate, nil, nil)
		return
	}
	date, err := parsePaymentDate(req.Date, core.Today())
	if err != nil {
		s.respondError(w, r, err, applog.OpCreate, nil, nil)
		return
	}
	note := truncateRunes(sanitizeInput(req.Note), maxNoteLength)

	p, err := s.svc.AddPayment(r.Context(), debtID, amount, date, note)
	if err != nil {
		s.respondError(w, r, err, applog.OpCreate, applog.NewFields().WithDebt(debtID, ""), nil)
		return
	}

	atomic.AddInt64(&s.appMetrics.paymentsAdded, 1)
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogPaymentAdded(r.Context(), p.ID, p.DebtID, p.Amount.String(), p.Date.String())

	NewJSONResponse().Status(http.StatusCreated).Body(p).Write(w)
}

func (s *Server) handlePaymentDeletionPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := s.svc.ValidatePaymentDeletion(pathID(r))
	if err != nil {
		s.respondError(w, r, err, applog.OpDelete, nil, nil)
		return
	}
	NewJSONResponse().Body(preview).Write(w)
}

// handleDeletePayment requires ?confirm=true like debt deletion.
func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	p, err := s.svc.DeletePayment(r.Context(), id, parseBoolQuery(r, "confirm"))
	if err != nil {
		fields := applog.NewFields()
		fields[applog.FieldPaymentID] = id
		s.respondError(w, r, err, applog.OpDelete, fields, p)
		return
	}
	NewJSONResponse().Body(map[string]any{"deleted": p}).Write(w)
}
