// Package http serves the JSON API, the server-rendered pages and the HTMX
// partials of the expense tracker.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/forms"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	appweb "expensetracker/web"
)

// Deps are the services the handlers call.
type Deps struct {
	Accounts      *services.AccountService
	Cards         *services.CardService
	Expenses      *services.ExpenseService
	Analytics     *services.AnalyticsService
	Notifications *services.NotificationService
	Sessions      *auth.SessionManager
	Storage       *storage.SQLiteRepository
	Caches        *cache.Manager
	Logger        *applog.Logger
}

type Options struct {
	RateLimitPerMinute int
	SecureCookies      bool
	TrustedProxies     []string
}

// Server embeds http.Server so callers can use ListenAndServe directly.
type Server struct {
	http.Server

	deps      Deps
	opts      Options
	logger    *applog.Logger
	templates *template.Template
	validate  *validator.Validate
	started   time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and builds the routing table.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard()
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector(logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}

	rlCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		deps:        deps,
		opts:        opts,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		templates:   t,
		validate:    forms.New(),
		started:     time.Now(),
		detector:    detector,
		rateLimiter: ratelimit.NewLimiter(rlCfg),
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		s.rateLimiter.Stop()
		return nil, err
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// chain wraps the mux: logger in context, tracing, security headers,
// suspicious request detection, then rate limiting.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	return applog.Middleware(s.logger)(h)
}

func (s *Server) routes(mux *http.ServeMux) error {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := s.requireAPISession
	page := s.requirePageSession

	// auth
	for _, p := range []string{"/api/register", "/api/auth/signup"} {
		mux.HandleFunc("POST "+p, s.handleRegister)
	}
	for _, p := range []string{"/api/login", "/api/auth/login"} {
		mux.HandleFunc("POST "+p, s.handleLogin)
	}
	for _, p := range []string{"/api/logout", "/api/auth/logout"} {
		mux.HandleFunc("POST "+p, s.handleLogout)
	}

	mux.Handle("GET /api/user/profile", api(s.handleGetProfile))
	mux.Handle("PUT /api/user/profile", api(s.handleUpdateProfile))
	mux.Handle("PUT /api/user/password", api(s.handleChangePassword))

	mux.Handle("GET /api/cards", api(s.handleListCards))
	mux.Handle("POST /api/cards", api(s.handleCreateCard))
	mux.Handle("PUT /api/cards/{id}", api(s.handleUpdateCard))
	mux.Handle("DELETE /api/cards/{id}", api(s.handleDeleteCard))

	mux.Handle("GET /api/expenses", api(s.handleListExpenses))
	mux.Handle("POST /api/expenses", api(s.handleCreateExpense))
	mux.Handle("GET /api/expenses/export", api(s.handleExportExpenses))
	mux.Handle("GET /api/expenses/{id}", api(s.handleGetExpense))
	mux.Handle("PUT /api/expenses/{id}", api(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", api(s.handleDeleteExpense))

	for _, p := range []string{"/api/analytics/summary", "/api/dashboard/summary"} {
		mux.Handle("GET "+p, api(s.handleSummary))
	}
	mux.Handle("GET /api/analytics/monthly", api(s.handleMonthly))
	mux.Handle("GET /api/analytics/category", api(s.handleCategory))
	mux.Handle("GET /api/charts/category", api(s.handleCategoryChart))
	mux.Handle("GET /api/charts/monthly", api(s.handleMonthlyChart))

	mux.Handle("GET /api/notifications", api(s.handleListNotifications))
	mux.Handle("PUT /api/notifications/read-all", api(s.handleMarkAllRead))
	mux.Handle("PUT /api/notifications/{id}/read", api(s.handleMarkRead))
	mux.Handle("DELETE /api/notifications/{id}", api(s.handleDeleteNotification))

	// pages
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("GET /signup", s.handleSignupPage)
	for _, name := range []string{"dashboard", "cards", "expenses", "reports", "notifications", "settings"} {
		mux.Handle("GET /"+name, page(s.handlePage(name)))
	}

	// htmx partials
	mux.HandleFunc("POST /ui/login", s.handleUILogin)
	mux.HandleFunc("POST /ui/signup", s.handleUISignup)
	mux.HandleFunc("POST /ui/logout", s.handleUILogout)
	mux.Handle("GET /ui/summary", api(s.handleUISummary))
	mux.Handle("GET /ui/transactions", api(s.handleUITransactions))
	mux.Handle("GET /ui/cards", api(s.handleUICards))
	mux.Handle("POST /ui/cards", api(s.handleUICreateCard))
	mux.Handle("DELETE /ui/cards/{id}", api(s.handleUIDeleteCard))
	mux.Handle("GET /ui/expenses", api(s.handleUIExpenses))
	mux.Handle("POST /ui/expenses", api(s.handleUICreateExpense))
	mux.Handle("GET /ui/expenses/{id}/edit", api(s.handleUIEditExpense))
	mux.Handle("PUT /ui/expenses/{id}", api(s.handleUIUpdateExpense))
	mux.Handle("DELETE /ui/expenses/{id}", api(s.handleUIDeleteExpense))
	mux.Handle("GET /ui/notifications", api(s.handleUINotifications))
	mux.Handle("GET /ui/notifications/badge", s.requirePollSession(s.handleUIBadge))
	mux.Handle("PUT /ui/notifications/{id}/read", api(s.handleUIMarkRead))
	mux.Handle("PUT /ui/notifications/read-all", api(s.handleUIMarkAllRead))
	mux.Handle("DELETE /ui/notifications/{id}", api(s.handleUIDeleteNotification))
	mux.Handle("PUT /ui/settings/profile", api(s.handleUIUpdateProfile))
	mux.Handle("PUT /ui/settings/password", api(s.handleUIChangePassword))

	return nil
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request, wait time.Duration) {
	retry := ratelimit.RetryAfterSeconds(wait)
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		"retry_after", retry)
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// Shutdown stops accepting requests, then releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
		s.rateLimiter.Stop()
	})
	return err
}
