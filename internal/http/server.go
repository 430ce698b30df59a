package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "payoff/internal/log"
	"payoff/internal/middleware/ratelimit"
	"payoff/internal/middleware/security"
	"payoff/internal/middleware/trace"
	"payoff/internal/services"
)

// Server is the JSON API over a DebtService.
type Server struct {
	http.Server

	svc        *services.DebtService
	logger     *applog.Logger
	structured *applog.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	securityHeaders  *security.HeadersMiddleware
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime        time.Time
	debtsCreated  int64
	paymentsAdded int64
	analyses      int64
}

// ServerOption customizes a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	rateLimit ratelimit.Config
}

// WithRateLimit replaces the default limit on mutating requests.
func WithRateLimit(cfg ratelimit.Config) ServerOption {
	return func(o *serverOptions) { o.rateLimit = cfg }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.DebtService, logger *applog.Logger, opts ...ServerOption) *Server {
	o := serverOptions{rateLimit: ratelimit.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	httpLogger := logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		svc:              svc,
		logger:           httpLogger,
		structured:       applog.NewStructuredLogger(httpLogger),
		rateLimiter:      ratelimit.NewLimiter(o.rateLimit),
		securityDetector: security.NewDetector(),
		securityHeaders:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		appMetrics:       appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(httpLogger, s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /debts", s.handleListDebts)
	mux.HandleFunc("POST /debts", s.handleCreateDebt)
	mux.HandleFunc("GET /debts/{id}", s.handleGetDebt)
	mux.HandleFunc("DELETE /debts/{id}", s.handleDeleteDebt)
	mux.HandleFunc("GET /debts/{id}/deletion", s.handleDebtDeletionPreview)
	mux.HandleFunc("PATCH /debts/{id}/total", s.handleEditDebtTotal)
	mux.HandleFunc("POST /debts/{id}/select", s.handleSelectDebt)
	mux.HandleFunc("GET /debts/{id}/report", s.handleReport)
	mux.HandleFunc("POST /debts/{id}/report/export", s.handleExportReport)

	mux.HandleFunc("POST /debts/{id}/payments", s.handleAddPayment)
	mux.HandleFunc("GET /payments/{id}/deletion", s.handlePaymentDeletionPreview)
	mux.HandleFunc("DELETE /payments/{id}", s.handleDeletePayment)

	mux.HandleFunc("GET /selection", s.handleGetSelection)
	mux.HandleFunc("DELETE /selection", s.handleClearSelection)

	mux.HandleFunc("POST /analysis", s.handleRequestAnalysis)
	mux.HandleFunc("GET /analysis", s.handleGetAnalysis)

	var handler http.Handler = jsonMethodNotAllowed(mux)
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.withDetection(handler)
	handler = applog.Middleware(httpLogger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = s.securityHeaders.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Long enough for POST /analysis?wait=true to outlive the advisory timeout.
		WriteTimeout: 2*time.Minute + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// jsonMethodNotAllowed turns the mux's plain-text 405 into the API's JSON
// error body, keeping the Allow header the mux computed.
func jsonMethodNotAllowed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&methodNotAllowedWriter{ResponseWriter: w}, r)
	})
}

type methodNotAllowedWriter struct {
	http.ResponseWriter
	replaced bool
}

func (w *methodNotAllowedWriter) WriteHeader(code int) {
	if code == http.StatusMethodNotAllowed && !w.replaced {
		w.replaced = true
		MethodNotAllowedError(w.Header().Get("Allow")).Write(w.ResponseWriter)
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *methodNotAllowedWriter) Write(b []byte) (int, error) {
	if w.replaced {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

// withDetection logs requests that look like scans. They are still served.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldComponent, applog.ComponentSecurity,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// respondError logs err at a level matching its class and writes the mapped
// response. preview is only used for confirmation conflicts.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, operation string, fields applog.LogFields, preview any) {
	ctx := r.Context()
	status, errorType := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.structured.LogError(ctx, "Request failed", err, errorType, applog.ComponentHTTP, operation, fields)
	} else {
		if fields == nil {
			fields = applog.NewFields()
		}
		fields.WithError(err).WithErrorType(errorType).WithOperation(operation)
		applog.FromContext(ctx).DebugContext(ctx, "Request rejected", fields.ToSlice()...)
	}
	errorResponseFor(err, preview).Write(w)
}
