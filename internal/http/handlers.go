package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/services"
)

// collectionOrder is the order the index page lays out the collections.
var collectionOrder = []string{
	"monthly-budgets",
	"incomes",
	"expenses",
	"budget-categories",
	"savings-entries",
	"category-templates",
}

// budgetScoped collections are listed for the active budget only.
var budgetScoped = map[string]bool{
	"incomes":           true,
	"budget-categories": true,
}

type pageView struct {
	Authenticated bool
	User          *core.User
	AuthError     string
	Overview      core.Overview
	Collections   []collectionView
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports whether templates, session storage and the broker are usable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.app.Ready(ctx); err != nil {
		checks["dependencies"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["dependencies"] = "ok"
	}

	checks["session"] = string(s.app.Auth.Status())
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, security and store metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_last_response_microseconds", "gauge", "Duration of the last response", traceMetrics.LastResponseTime)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", rateLimitMetrics.ClientCount)
	metric("security_suspicious_requests_total", "counter", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	metric("security_blocked_requests_total", "counter", "Requests blocked by method", securityMetrics.BlockedRequests)

	fmt.Fprintf(w, "# HELP store_items Records held per collection\n# TYPE store_items gauge\n")
	for _, name := range collectionOrder {
		if h, ok := s.collections[name]; ok {
			fmt.Fprintf(w, "store_items{collection=%q} %d\n", name, len(h.view(0).Rows))
		}
	}
}

// handleIndex renders the full page. A session stored by an earlier process
// is validated on first visit.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.app.Auth.Status() != services.StatusAuthenticated {
		if s.app.Auth.CheckToken(ctx) == services.StatusAuthenticated {
			if err := s.app.RefreshAll(ctx); err != nil {
				log.FromContext(ctx).WarnContext(ctx, "Initial load failed", log.FieldError, err.Error())
			}
		}
	}

	view := pageView{
		Authenticated: s.app.Auth.Status() == services.StatusAuthenticated,
		User:          s.app.Auth.User(),
		AuthError:     s.app.Auth.Error(),
	}
	if view.Authenticated {
		view.Overview = s.app.Dashboard()
		parent := activeBudgetID(view.Overview)
		for _, name := range collectionOrder {
			var p int64
			if budgetScoped[name] {
				p = parent
			}
			view.Collections = append(view.Collections, s.collections[name].view(p))
		}
	}

	out, err := s.render("index", view)
	if err != nil {
		s.renderFailed(w, r, "index", err)
		return
	}
	NewHTMXResponse().Notifications(drainNotifications(ctx)).HTML(out).Write(w)
}

// handleDashboard renders the overview partial from what the stores hold.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.render("dashboard", s.app.Dashboard())
	if err != nil {
		s.renderFailed(w, r, "dashboard", err)
		return
	}
	NewHTMXResponse().HTML(out).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, s.app.Auth.Login)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, s.app.Auth.Register)
}

// authenticate starts a session and loads every collection for it.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, start func(context.Context, api.Credentials) error) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	ctx := r.Context()
	creds := api.Credentials{Email: body.Get("email"), Password: body.Get("password")}
	if err := start(ctx, creds); err != nil {
		UnprocessableEntityError(operationMessage(err, "Authentication failed.")).
			Notifications(drainNotifications(ctx)).
			Write(w)
		return
	}
	if err := s.app.RefreshAll(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Initial load failed", log.FieldError, err.Error())
	}
	redirectHome(w, r)
}

// handleLogout ends the session; the stores are emptied by the logout hook.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.app.Auth.Logout(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to clear session",
			log.FieldOperation, log.OpLogout, log.FieldError, err.Error())
	}
	redirectHome(w, r)
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
		log.FieldOperation, log.OpRender, "template", name, log.FieldError, err.Error())
	InternalServerError("Rendering failed").Write(w)
}

// redirectHome sends HTMX requests to / with HX-Redirect and plain form
// posts with a 303.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func activeBudgetID(o core.Overview) int64 {
	if o.ActiveBudget == nil {
		return 0
	}
	return o.ActiveBudget.ID
}

// operationMessage returns the user-facing text carried by a service error.
func operationMessage(err error, fallback string) string {
	var opErr *services.OperationError
	if errors.As(err, &opErr) && opErr.Message != "" {
		return opErr.Message
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
