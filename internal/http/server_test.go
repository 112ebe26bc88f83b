package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/api"
	"saldo/internal/app"
	"saldo/internal/config"
	"saldo/internal/core"
	"saldo/internal/log"
)

// fakeBackend serves a small fixed data set for one user.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(pattern string, code int, body any) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			if body != nil {
				_ = json.NewEncoder(w).Encode(body)
			}
		})
	}
	reply("GET /monthly-budgets", http.StatusOK, []core.MonthlyBudget{
		{ID: 2, Month: 2, Year: 2026, TotalPlannedIncome: decimal.NewFromInt(2000), IsActive: true},
	})
	reply("GET /incomes", http.StatusOK, []core.Income{
		{ID: 1, MonthlyBudgetID: 2, Amount: decimal.NewFromInt(2000), Source: "Salary", ReceivedAt: "2026-02-01"},
	})
	reply("GET /budget-categories", http.StatusOK, []core.BudgetCategory{
		{ID: 4, MonthlyBudgetID: 2, Name: "Food", TargetAmount: decimal.NewFromInt(400)},
	})
	reply("GET /expenses", http.StatusOK, []core.Expense{
		{ID: 9, BudgetCategoryID: 4, Amount: decimal.NewFromInt(100), Description: "Groceries", OccurredAt: "2026-02-03"},
	})
	reply("GET /savings-entries", http.StatusOK, []core.SavingsEntry{})
	reply("GET /category-templates", http.StatusOK, []core.CategoryTemplate{})
	reply("GET /monthly-budgets/2", http.StatusOK,
		core.MonthlyBudget{ID: 2, Month: 2, Year: 2026, TotalPlannedIncome: decimal.NewFromInt(2000), IsActive: true})
	mux.HandleFunc("PUT /monthly-budgets/2", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Month              *int             `json:"month"`
			TotalPlannedIncome *decimal.Decimal `json:"total_planned_income"`
			IsActive           bool             `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b := core.MonthlyBudget{ID: 2, Month: 2, Year: 2026, TotalPlannedIncome: decimal.NewFromInt(2000), IsActive: body.IsActive}
		if body.Month != nil {
			b.Month = *body.Month
		}
		if body.TotalPlannedIncome != nil {
			b.TotalPlannedIncome = *body.TotalPlannedIncome
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b)
	})
	reply("PUT /expenses/9", http.StatusOK,
		core.Expense{ID: 9, BudgetCategoryID: 4, Amount: decimal.NewFromInt(120), Description: "Groceries and wine", OccurredAt: "2026-02-03"})
	reply("POST /expenses", http.StatusCreated,
		core.Expense{ID: 10, BudgetCategoryID: 4, Amount: decimal.RequireFromString("12.5"), Description: "Coffee beans", OccurredAt: "2026-02-05"})
	reply("DELETE /expenses/9", http.StatusNoContent, nil)
	reply("POST /incomes", http.StatusBadRequest, map[string]any{"message": "Budget is closed"})
	reply("POST /auth/login", http.StatusOK, api.AuthResponse{AccessToken: "tok", User: core.User{ID: 1, Email: "ada@example.com"}})
	reply("POST /auth/register", http.StatusConflict, map[string]any{"message": "Email already registered"})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	backend := fakeBackend(t)

	cfg := &config.Config{APIURL: backend.URL, APITimeout: 5 * time.Second, SessionBackend: "memory"}
	a, err := app.New(cfg, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv, err := NewServer(":0", a, log.Discard(), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, srv *Server) {
	t.Helper()
	rr := do(srv, http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "/", rr.Header().Get("HX-Redirect"))
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Log in")
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Header().Get("Content-Type"), "application/json", path)
	}

	rr = do(srv, http.MethodGet, "/static/app.js", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}

func TestLoginLoadsEveryCollection(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv)

	rr := do(srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "ada@example.com")
	assert.Contains(t, body, "Groceries")
	assert.Contains(t, body, "Salary")
	assert.Contains(t, body, "€2.000,00")
	assert.Contains(t, body, "02/2026")

	rr = do(srv, http.MethodGet, "/ui/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "€1.900,00")
}

func TestLoginFailureKeepsForm(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/register", url.Values{"email": {"ada@example.com"}, "password": {"secret"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email already registered")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "show-notification")

	rr = do(srv, http.MethodPost, "/login", url.Values{"email": {""}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCollectionSave(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv)

	tests := []struct {
		name        string
		collection  string
		form        url.Values
		wantCode    int
		wantBody    string
		wantTrigger string
	}{
		{
			name:       "created",
			collection: "expenses",
			form: url.Values{
				"budget_category_id": {"4"},
				"amount":             {"12,50"},
				"description":        {"Coffee beans"},
				"occurred_at":        {"2026-02-05"},
			},
			wantCode:    http.StatusOK,
			wantBody:    "Coffee beans",
			wantTrigger: "expenses:changed",
		},
		{
			name:       "invalid amount",
			collection: "expenses",
			form: url.Values{
				"budget_category_id": {"4"},
				"amount":             {"abc"},
				"description":        {"Coffee beans"},
				"occurred_at":        {"2026-02-05"},
			},
			wantCode:    http.StatusUnprocessableEntity,
			wantBody:    "valid amount",
			wantTrigger: "show-notification",
		},
		{
			name:       "server message is shown",
			collection: "incomes",
			form: url.Values{
				"monthly_budget_id": {"2"},
				"amount":            {"100"},
				"source":            {"Gift"},
				"received_at":       {"2026-02-10"},
			},
			wantCode:    http.StatusUnprocessableEntity,
			wantBody:    "Budget is closed",
			wantTrigger: "Budget is closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/ui/"+tt.collection, tt.form)
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			assert.Contains(t, rr.Header().Get("HX-Trigger"), tt.wantTrigger)
		})
	}
}

func TestCollectionDelete(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv)

	rr := do(srv, http.MethodPost, "/ui/expenses/404/delete", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(srv, http.MethodPost, "/ui/expenses/9/delete", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Groceries")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "dashboard:refresh")

	rr = do(srv, http.MethodPost, "/ui/expenses/abc/delete", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCollectionEditRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv)

	rr := do(srv, http.MethodPost, "/ui/expenses/9/select", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `name="id" value="9"`)
	assert.Contains(t, body, `value="Groceries"`)
	assert.Contains(t, body, `value="100.00"`)
	assert.Contains(t, body, `value="2026-02-03"`)
	assert.Contains(t, body, "Cancel")

	rr = do(srv, http.MethodPost, "/ui/expenses", url.Values{
		"id":                 {"9"},
		"budget_category_id": {"4"},
		"amount":             {"120"},
		"description":        {"Groceries and wine"},
		"occurred_at":        {"2026-02-03"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, "Groceries and wine")
	assert.Contains(t, body, "€120,00")
	assert.NotContains(t, body, `name="id"`, "a saved edit puts the form back into create mode")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "expenses:changed")

	rr = do(srv, http.MethodPost, "/ui/expenses/404/select", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCollectionDeselect(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv)

	rr := do(srv, http.MethodPost, "/ui/category-templates/9/select", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(srv, http.MethodPost, "/ui/expenses/9/select", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(srv, http.MethodPost, "/ui/expenses/deselect", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `name="id"`)
	assert.Contains(t, rr.Body.String(), "Add")
}

func TestEditActiveBudgetKeepsItActive(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv)

	rr := do(srv, http.MethodPost, "/ui/monthly-budgets", url.Values{
		"id":                   {"2"},
		"month":                {"2"},
		"year":                 {"2026"},
		"total_planned_income": {"2500"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<td>active</td>")
	assert.Contains(t, rr.Body.String(), "€2.500,00")

	rr = do(srv, http.MethodGet, "/ui/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Active budget 02/2026")
}

func TestUnknownCollection(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/ui/invoices", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBudgetDetailAndClose(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv)

	rr := do(srv, http.MethodGet, "/ui/monthly-budgets/2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Budget 02/2026")
	assert.Contains(t, rr.Body.String(), "Food")

	rr = do(srv, http.MethodPost, "/ui/monthly-budgets/2/close", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "closed")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "monthly-budgets:changed")

	rr = do(srv, http.MethodPost, "/ui/monthly-budgets/77/close", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestLogoutEmptiesStores(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `store_items{collection="expenses"} 0`)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func TestBlockedMethod(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, "TRACE", "/", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
