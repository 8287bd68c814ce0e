// Package http serves the JSON API: transaction submission, ledger reads,
// windowed insights and the category taxonomy.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/report"
	"fintrack/internal/taxonomy"
)

const maxBodyBytes = 64 << 10

type (
	Submitter interface {
		Submit(ctx context.Context, text string, currentDate core.Date) (core.Record, error)
	}

	LedgerReader interface {
		ReadAll(ctx context.Context) ([]core.Record, error)
		ReadRange(ctx context.Context, start, end core.Date) ([]core.Record, error)
		// Len is the size of the current snapshot; it never touches the store.
		Len() int
	}

	Analyzer interface {
		Analyze(records []core.Record, w core.Window) analytics.Result
	}

	CategoryLister interface {
		Entries(typ core.TransactionType) []taxonomy.Entry
	}

	// ReadyCheck is one dependency probed by /readyz.
	ReadyCheck struct {
		Name  string
		Check func(ctx context.Context) error
	}

	Deps struct {
		Submitter  Submitter
		Ledger     LedgerReader
		Analyzer   Analyzer
		Categories CategoryLister
		Ready      []ReadyCheck
	}
)

type Server struct {
	http.Server

	deps       Deps
	logger     *log.Logger
	validate   *validator.Validate
	ipResolver *security.ClientIPResolver
	limiter    *ratelimit.Limiter
	rateConfig ratelimit.Config
	tracer     *trace.Middleware
	now        func() time.Time
	started    time.Time
	currency   string

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger.WithComponent(log.ComponentHTTP) }
}

// WithClock replaces the clock used for "today" and uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithCurrencySymbol prefixes display amounts in insight views.
func WithCurrencySymbol(symbol string) Option {
	return func(s *Server) { s.currency = symbol }
}

func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) { s.rateConfig = cfg }
}

// WithTrustedProxies adds proxies whose forwarding headers are believed.
func WithTrustedProxies(cidrs ...string) Option {
	return func(s *Server) {
		for _, c := range cidrs {
			if err := s.ipResolver.AddTrustedProxy(c); err != nil {
				s.logger.Warn("Ignoring trusted proxy", "cidr", c, log.FieldError, err)
			}
		}
	}
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Call Shutdown to stop it and its background goroutines.
func NewServer(addr string, deps Deps, opts ...Option) *Server {
	s := &Server{
		deps:       deps,
		logger:     log.Default().WithComponent(log.ComponentHTTP),
		validate:   newValidator(),
		ipResolver: security.NewClientIPResolver(),
		rateConfig: ratelimit.DefaultConfig(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	s.limiter = ratelimit.NewLimiter(s.rateConfig)
	s.tracer = trace.NewMiddleware(s.logger, s.ipResolver.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.APIHeadersConfig())
	limit := s.limiter.Middleware(s.ipResolver.ClientIP, s.rejectRateLimited, http.MethodPost)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        s.tracer.Middleware(headers.Middleware(limit(mux))),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.ipResolver.ClientIP(r),
		log.FieldPath, r.URL.Path)
	writeJSON(r.Context(), w, http.StatusTooManyRequests, report.ErrorView{
		Message:   "Too many requests. Please wait a minute and try again.",
		Retryable: true,
	})
}

// Shutdown gracefully stops the listener and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
		s.logger.InfoContext(ctx, "HTTP server stopped",
			log.FieldOperation, log.OpShutdown,
			"requests_served", s.tracer.Total(),
			"rate_limited", s.limiter.Hits())
	})
	return err
}
