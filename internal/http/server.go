// Package http serves the budget session as a JSON API under /api.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetplanner/internal/core"
	"budgetplanner/internal/log"
	"budgetplanner/internal/middleware/ratelimit"
	"budgetplanner/internal/middleware/security"
	"budgetplanner/internal/middleware/trace"
	"budgetplanner/internal/session"
)

type Server struct {
	http.Server
	session  *session.Session
	clock    core.Clock
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	ready    func(ctx context.Context) error

	rateLimit    ratelimit.Config
	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l.WithComponent(log.ComponentHTTP) }
}

// WithClock sets the clock used for request defaults such as today's date.
func WithClock(c core.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithReadinessCheck makes /readyz answer 503 while check fails.
func WithReadinessCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithRateLimit overrides the per-client limit on mutating requests.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) { s.rateLimit = cfg }
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Call Shutdown to stop it and its background goroutines.
func NewServer(addr string, sess *session.Session, opts ...Option) *Server {
	s := &Server{
		session:   sess,
		clock:     core.SystemClock{},
		logger:    log.Default(log.ComponentHTTP),
		detector:  security.NewDetector(),
		rateLimit: ratelimit.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = ratelimit.NewLimiter(s.rateLimit)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/daily", s.handleDaily)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)

	for prefix, ops := range map[string]transactionOps{
		"/api/incomes":  s.incomeOps(),
		"/api/expenses": s.expenseOps(),
	} {
		mux.HandleFunc("GET "+prefix, ops.handleList)
		mux.HandleFunc("POST "+prefix, ops.handleCreate)
		mux.HandleFunc("PATCH "+prefix+"/{id}", ops.handleUpdate)
		mux.HandleFunc("DELETE "+prefix+"/{id}", ops.handleDelete)
	}

	mux.HandleFunc("GET /api/settings", s.handleSettings)
	mux.HandleFunc("PUT /api/settings/goal", s.handleSetGoal)
	mux.HandleFunc("PUT /api/settings/currency", s.handleSetCurrency)
	mux.HandleFunc("PUT /api/settings/month", s.handleSetMonth)
	mux.HandleFunc("PUT /api/settings/user", s.handleSetUser)

	mux.HandleFunc("GET /api/rates", s.handleRates)
	mux.HandleFunc("POST /api/rates/refresh", s.handleRefreshRates)
	mux.HandleFunc("GET /api/currencies", handleCurrencies)
	mux.HandleFunc("GET /api/categories", handleCategories)
	mux.HandleFunc("POST /api/reset", s.handleReset)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withMiddleware wraps next, outermost first: request logger, tracing,
// security headers, suspicious request detection and rate limiting of
// mutating requests.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, s.onRateLimit)(next)
	h := s.detector.Middleware(limited)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	return log.Middleware(s.logger)(h)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		"retry_after", retryAfter.String())
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
