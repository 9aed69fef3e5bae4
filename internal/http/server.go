package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"expensepie/internal/core"
	"expensepie/internal/log"
	"expensepie/internal/metrics"
	"expensepie/internal/middleware/ratelimit"
	"expensepie/internal/middleware/security"
	"expensepie/internal/middleware/trace"
	appweb "expensepie/web"
)

const (
	readyTimeout  = 2 * time.Second
	staticMaxAge  = 3600
	readHeaderTTL = 5 * time.Second
)

// Ledger is what the handlers need from the ledger service.
type Ledger interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	Category(ctx context.Context, id string) (core.Category, error)
	AddCategory(ctx context.Context, name string, color core.Color, emoji string) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListExpenses(ctx context.Context) ([]core.Expense, error)
	Expense(ctx context.Context, id string) (core.Expense, error)
	AddExpense(ctx context.Context, categoryID string, amount core.Money, detail string) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	Chart(ctx context.Context, g core.Grouping) (core.Breakdown, error)
	Settings(ctx context.Context) (core.Settings, error)
	SetDarkMode(ctx context.Context, on bool) (core.Settings, error)
	Version() uint64
}

// Options configures the optional parts of the server.
type Options struct {
	RateLimit      ratelimit.Config
	TrustedProxies []string
	// Metrics enables /metrics and per-route request metrics when set.
	Metrics *metrics.Registry
	Logger  *log.Logger
}

type Server struct {
	http.Server
	ledger    Ledger
	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	metrics   *metrics.Registry
	logger    *log.Logger
	events    *log.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: readHeaderTTL,
		},
		ledger:   ledger,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		metrics:  opts.Metrics,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
	}
	if err := s.metrics.RegisterEdge(metrics.EdgeStats{
		Suspicious:    s.detector.SuspiciousCount,
		RateLimited:   s.limiter.Rejected,
		ActiveClients: s.limiter.ActiveClients,
	}); err != nil {
		logger.Warn("Failed to register middleware metrics", log.FieldError, err)
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)
	s.Handler = s.middleware(trace.Route(mux))
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Pages and partials
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/chart", s.handleChartPartial)
	mux.HandleFunc("GET /ui/expenses", s.handleExpensesPartial)
	mux.HandleFunc("GET /settings", s.handleSettingsPage)

	// Form endpoints (post/redirect/get, or HX-Trigger for htmx)
	mux.HandleFunc("POST /categories", s.handleCategoryCreateForm)
	mux.HandleFunc("POST /categories/{id}", s.handleCategoryUpdateForm)
	mux.HandleFunc("POST /categories/{id}/delete", s.handleCategoryDeleteForm)
	mux.HandleFunc("POST /expenses", s.handleExpenseCreateForm)
	mux.HandleFunc("POST /expenses/{id}", s.handleExpenseUpdateForm)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleExpenseDeleteForm)
	mux.HandleFunc("POST /settings", s.handleSettingsForm)

	// JSON API
	mux.HandleFunc("GET /api/chart", s.handleAPIChart)
	mux.HandleFunc("GET /api/categories", s.handleAPIListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAPICreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleAPIUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleAPIDeleteCategory)
	mux.HandleFunc("GET /api/expenses", s.handleAPIListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAPICreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleAPIUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleAPIDeleteExpense)
	mux.HandleFunc("GET /api/settings", s.handleAPISettings)
	mux.HandleFunc("PUT /api/settings", s.handleAPIUpdateSettings)
}

// middleware wraps mux, outermost first: request logger, tracing, request
// ID on the logger, security headers, probe detection, rate limiting.
func (s *Server) middleware(mux http.Handler) http.Handler {
	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(h)
	h = s.flagSuspicious(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = trace.NewMiddleware(s.onRequestComplete).Handler(h)
	h = log.Middleware(s.logger)(h)
	return h
}

func (s *Server) onRequestComplete(r *http.Request, c trace.Completion) {
	s.metrics.ObserveHTTP(c.Method, c.Route, c.Status, c.Duration)

	ctx := log.NewContext(r.Context(), log.FromContext(r.Context()).With(log.FieldRequestID, c.RequestID))
	s.events.LogHTTPEnd(ctx, r, c.Status, c.Duration.Milliseconds(), s.detector.ExtractClientIP(r))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.NewFields().
			WithClientIP(s.detector.ExtractClientIP(r)).
			WithHTTPRequest(r.Method, r.URL.Path, "", "").
			ToSlice()...)
	if isAPI(r) {
		JSONError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.NewFields().
					WithClientIP(s.detector.ExtractClientIP(r)).
					WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
					ToSlice()...)
		}
		next.ServeHTTP(w, r)
	})
}

// Limiter exposes the rate limiter so main can sweep idle clients.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the backing store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if _, err := s.ledger.ListCategories(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
