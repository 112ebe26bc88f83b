package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"saldo/internal/app"
	"saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/notify"
	appweb "saldo/web"
)

// Server renders the stores of one App as HTML pages and HTMX partials.
type Server struct {
	http.Server

	app         *app.App
	logger      *log.Logger
	templates   *template.Template
	collections map[string]collectionHandler

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// Options tune the middleware of a Server.
type Options struct {
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

// DefaultOptions limits form submissions to 60 a minute per client.
func DefaultOptions() Options {
	return Options{RateLimit: ratelimit.DefaultConfig()}
}

// NewServer configures routes, templates and middleware.
func NewServer(addr string, a *app.App, logger *log.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("saldo").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		app:              a,
		logger:           logger,
		templates:        t,
		securityDetector: security.NewDetector(logger),
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit, logger),
		started:          time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			s.rateLimiter.Stop()
			return nil, err
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)
	s.collections = s.newBindings()

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		s.rateLimiter.Stop()
		return nil, err
	}

	s.Server = http.Server{
		Addr:           addr,
		Handler:        s.middleware(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /ui/monthly-budgets/{id}", s.handleBudgetGet)
	mux.HandleFunc("POST /ui/monthly-budgets/{id}/close", s.handleBudgetClose)

	mux.HandleFunc("GET /ui/{collection}", s.handleCollectionList)
	mux.HandleFunc("POST /ui/{collection}", s.handleCollectionSave)
	mux.HandleFunc("POST /ui/{collection}/{id}/delete", s.handleCollectionDelete)
	mux.HandleFunc("POST /ui/{collection}/{id}/select", s.handleCollectionSelect)
	mux.HandleFunc("POST /ui/{collection}/deselect", s.handleCollectionDeselect)
	mux.HandleFunc("POST /ui/{collection}/clear-error", s.handleCollectionClearError)
	return nil
}

// middleware wraps the mux, outermost first: tracing, security headers,
// suspicious request detection, rate limiting of submissions and the
// per-request notification collector.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").
			Header("Retry-After", "60").
			TriggerErrorNotification("Slow down", "Too many requests. Please try again later.").
			Write(w)
	})

	h := withNotifications(next)
	h = limit(h)
	h = s.securityDetector.Middleware(h)
	h = headers.Middleware(h)
	return s.traceMiddleware.Middleware(h)
}

// withNotifications gives every request its own collector so the services'
// notifications end up in the response.
func withNotifications(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := notify.WithNotifier(r.Context(), &notify.Collector{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func drainNotifications(ctx context.Context) []notify.Notification {
	if c, ok := notify.FromContext(ctx, nil).(*notify.Collector); ok {
		return c.Drain()
	}
	return nil
}

func (s *Server) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
