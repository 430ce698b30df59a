package http

import (
	"net/http"
	"sync/atomic"

	"payoff/internal/core"
	applog "payoff/internal/log"
)

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.svc.Dashboard()).Write(w)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req createDebtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, applog.OpCreate, nil, nil)
		return
	}

	total, err := req.TotalAmount.Money("totalAmount")
	if err != nil {
		s.respondError(w, r, err, applog.OpCreate, nil, nil)
		return
	}

	d, err := s.svc.CreateDebt(r.Context(), sanitizeInput(req.CreditorName), total)
	if err != nil {
		s.respondError(w, r, err, applog.OpCreate, applog.NewFields().WithDebt("", req.CreditorName), nil)
		return
	}

	atomic.AddInt64(&s.appMetrics.debtsCreated, 1)
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogDebtCreated(r.Context(), d.ID, d.CreditorName, d.TotalAmount.String())

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/debts/"+d.ID).
		Body(d).
		Write(w)
}

func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.Detail(pathID(r))
	if err != nil {
		s.respondError(w, r, err, applog.OpRead, nil, nil)
		return
	}
	NewJSONResponse().Body(detail).Write(w)
}

func (s *Server) handleDebtDeletionPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := s.svc.ValidateDeletion(pathID(r))
	if err != nil {
		s.respondError(w, r, err, applog.OpDelete, nil, nil)
		return
	}
	NewJSONResponse().Body(preview).Write(w)
}

// handleDeleteDebt requires ?confirm=true; without it the response is 409
// carrying the deletion preview.
func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	preview, err := s.svc.DeleteDebt(r.Context(), id, parseBoolQuery(r, "confirm"))
	if err != nil {
		s.respondError(w, r, err, applog.OpDelete, applog.NewFields().WithDebt(id, ""), preview)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"deleted":         preview.DebtID,
		"paymentsRemoved": preview.PaymentCount,
	}).Write(w)
}

func (s *Server) handleEditDebtTotal(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req editTotalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, applog.OpUpdate, nil, nil)
		return
	}
	total, err := req.TotalAmount.Money("totalAmount")
	if err != nil {
		s.respondError(w, r, err, applog.OpUpdate, nil, nil)
		return
	}

	if _, err := s.svc.EditDebtTotal(r.Context(), id, total); err != nil {
		s.respondError(w, r, err, applog.OpUpdate, applog.NewFields().WithDebt(id, ""), nil)
		return
	}
	detail, err := s.svc.Detail(id)
	if err != nil {
		s.respondError(w, r, err, applog.OpRead, nil, nil)
		return
	}
	NewJSONResponse().Body(detail).Write(w)
}

func (s *Server) handleSelectDebt(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := s.svc.SelectDebt(id); err != nil {
		s.respondError(w, r, err, applog.OpSelect, applog.NewFields().WithDebt(id, ""), nil)
		return
	}
	s.writeSelection(w)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	s.writeSelection(w)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.SelectDebt(""); err != nil {
		s.respondError(w, r, err, applog.OpSelect, nil, nil)
		return
	}
	s.writeSelection(w)
}

func (s *Server) writeSelection(w http.ResponseWriter) {
	body := struct {
		Selected *core.Debt `json:"selected"`
	}{}
	if d, ok := s.svc.Selected(); ok {
		body.Selected = &d
	}
	NewJSONResponse().Body(body).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Report(pathID(r))
	if err != nil {
		s.respondError(w, r, err, applog.OpRead, nil, nil)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

// handleExportReport answers 200 when the report was written directly and 202
// when it was queued for the report worker.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	report, queued, err := s.svc.ExportReport(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, applog.OpExport, applog.NewFields().WithDebt(id, ""), nil)
		return
	}
	status := http.StatusOK
	if queued {
		status = http.StatusAccepted
	}
	NewJSONResponse().Status(status).Body(map[string]any{
		"queued": queued,
		"report": report,
	}).Write(w)
}
