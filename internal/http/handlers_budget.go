package http

import (
	"net/http"

	"saldo/internal/core"
)

type budgetView struct {
	Budget     core.MonthlyBudget
	Categories collectionView
	Incomes    collectionView
}

// handleBudgetGet loads one budget from the API and renders its detail with
// the categories and incomes currently held for it.
func (s *Server) handleBudgetGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(FieldMessage(err)).Write(w)
		return
	}

	ctx := r.Context()
	b, err := s.app.Budgets.Load(ctx, id)
	if err != nil {
		UnprocessableEntityError(operationMessage(err, "Could not load the budget.")).
			Notifications(drainNotifications(ctx)).
			Write(w)
		return
	}
	if b == nil {
		redirectHome(w, r)
		return
	}

	view := budgetView{
		Budget:     *b,
		Categories: s.collections["budget-categories"].view(b.ID),
		Incomes:    s.collections["incomes"].view(b.ID),
	}
	out, err := s.render("budget", view)
	if err != nil {
		s.renderFailed(w, r, "budget", err)
		return
	}
	NewHTMXResponse().Notifications(drainNotifications(ctx)).HTML(out).Write(w)
}

// handleBudgetClose closes a loaded budget and re-renders the budget list.
func (s *Server) handleBudgetClose(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError(FieldMessage(err)).Write(w)
		return
	}

	ctx := r.Context()
	if err := s.app.Budgets.CloseByID(ctx, id); err != nil {
		UnprocessableEntityError(operationMessage(err, "Could not close the budget.")).
			Notifications(drainNotifications(ctx)).
			Write(w)
		return
	}

	h := s.collections["monthly-budgets"]
	resp := NewHTMXResponse().
		TriggerCollectionChanged(h.name()).
		TriggerDashboardRefresh()
	s.renderCollection(w, r, h, 0, resp)
}
