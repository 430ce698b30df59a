package http

import (
	"net/http"
	"sync/atomic"

	applog "payoff/internal/log"
	"payoff/internal/services"
)

// handleRequestAnalysis dispatches an analysis of the selected debt. A cached
// result is returned at once with 200; otherwise the call runs in the
// background and the response is 202, unless ?wait=true asks to block until
// it completes.
func (s *Server) handleRequestAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pa, err := s.svc.RequestAnalysis(ctx)
	if err != nil {
		s.respondError(w, r, err, applog.OpAnalyze, nil, nil)
		return
	}
	atomic.AddInt64(&s.appMetrics.analyses, 1)

	respondNow := parseBoolQuery(r, "wait")
	select {
	case <-pa.Done():
		respondNow = true
	default:
	}
	if !respondNow {
		NewJSONResponse().
			Status(http.StatusAccepted).
			Header("Location", "/analysis").
			Body(services.AnalysisView{Status: services.AnalysisPending, Token: pa.Token}).
			Write(w)
		return
	}

	res, err := pa.Wait(ctx)
	if err != nil {
		// Client went away; the analysis keeps running and will be cached.
		return
	}
	NewJSONResponse().Body(services.AnalysisView{
		Status: services.AnalysisReady,
		Token:  pa.Token,
		Result: &res,
	}).Write(w)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.svc.Analysis()).Write(w)
}
