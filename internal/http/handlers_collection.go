package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/services"
)

// formField describes one input of a collection form.
type formField struct {
	Name, Label, Type string
	Required          bool
	Step              string
	Value             string
}

type rowView struct {
	ID     int64
	Cells  []string
	Active bool
}

// collectionView is what the collection partial renders.
type collectionView struct {
	Name         string
	Title        string
	Columns      []string
	Rows         []rowView
	HasAggregate bool
	Aggregate    string
	IsLoading    bool
	Error        string
	Parent       int64
	// Editing is the id of the selected record the form is bound to.
	Editing int64
	Fields  []formField
}

// collectionHandler is the type-erased view of one bound collection.
type collectionHandler interface {
	name() string
	view(parent int64) collectionView
	list(ctx context.Context, parent int64)
	save(ctx context.Context, f fields) error
	remove(ctx context.Context, id int64) error
	selectRecord(id int64) bool
	clearSelection()
	clearError()
}

// binding adapts a typed collection service to the HTTP handlers.
type binding[T core.Entity] struct {
	svc       *services.CollectionService[T]
	title     string
	columns   []string
	fields    []formField
	aggregate bool
	row       func(T) []string
	values    func(T) map[string]string
	parse     func(fields) (T, error)
	active    func(T) bool
}

func (b *binding[T]) name() string { return b.svc.Collection() }

func (b *binding[T]) view(parent int64) collectionView {
	st := b.svc.State()
	v := collectionView{
		Name:         b.svc.Collection(),
		Title:        b.title,
		Columns:      b.columns,
		HasAggregate: b.aggregate,
		Aggregate:    formatEuros(st.Aggregate),
		IsLoading:    st.IsLoading,
		Error:        st.Error,
		Parent:       parent,
		Fields:       b.fields,
		Rows:         make([]rowView, 0, len(st.Items)),
	}
	if st.Selected != nil && b.values != nil {
		vals := b.values(*st.Selected)
		v.Editing = (*st.Selected).EntityID()
		v.Fields = make([]formField, len(b.fields))
		for i, f := range b.fields {
			f.Value = vals[f.Name]
			v.Fields[i] = f
		}
	}
	for _, it := range st.Items {
		r := rowView{ID: it.EntityID(), Cells: b.row(it)}
		if b.active != nil {
			r.Active = b.active(it)
		}
		v.Rows = append(v.Rows, r)
	}
	return v
}

func (b *binding[T]) list(ctx context.Context, parent int64) { b.svc.List(ctx, parent) }

func (b *binding[T]) save(ctx context.Context, f fields) error {
	e, err := b.parse(f)
	if err != nil {
		return err
	}
	if _, err = b.svc.Save(ctx, e); err != nil {
		return err
	}
	b.svc.Select(nil)
	return nil
}

func (b *binding[T]) remove(ctx context.Context, id int64) error { return b.svc.RemoveByID(ctx, id) }

// selectRecord binds the form to a loaded record.
func (b *binding[T]) selectRecord(id int64) bool {
	e, ok := b.svc.Store().Find(id)
	if ok {
		b.svc.Select(&e)
	}
	return ok
}

func (b *binding[T]) clearSelection() { b.svc.Select(nil) }

func (b *binding[T]) clearError() { b.svc.ClearError() }

func idValue(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// amountValue leaves zero amounts empty, as optional amount fields expect.
func amountValue(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return core.FormatAmount(d)
}

func idCell(id int64) string { return strconv.FormatInt(id, 10) }

// newBindings lists the collections exposed under /ui/{collection}.
func (s *Server) newBindings() map[string]collectionHandler {
	a := s.app
	all := []collectionHandler{
		&binding[core.Income]{
			svc:       a.Incomes,
			title:     "Incomes",
			columns:   []string{"Date", "Source", "Amount"},
			aggregate: true,
			fields: []formField{
				{Name: "monthly_budget_id", Label: "Budget", Type: "hidden"},
				{Name: "amount", Label: "Amount", Type: "text", Required: true},
				{Name: "source", Label: "Source", Type: "text", Required: true},
				{Name: "received_at", Label: "Received on", Type: "date", Required: true},
			},
			row: func(i core.Income) []string {
				return []string{core.DatePart(i.ReceivedAt), i.Source, formatEuros(i.Amount)}
			},
			values: func(i core.Income) map[string]string {
				return map[string]string{
					"monthly_budget_id": idValue(i.MonthlyBudgetID),
					"amount":            amountValue(i.Amount),
					"source":            i.Source,
					"received_at":       core.DatePart(i.ReceivedAt),
				}
			},
			parse: parseIncome,
		},
		&binding[core.Expense]{
			svc:       a.Expenses,
			title:     "Expenses",
			columns:   []string{"Date", "Description", "Category", "Amount"},
			aggregate: true,
			fields: []formField{
				{Name: "budget_category_id", Label: "Category id", Type: "number", Required: true, Step: "1"},
				{Name: "amount", Label: "Amount", Type: "text", Required: true},
				{Name: "description", Label: "Description", Type: "text", Required: true},
				{Name: "occurred_at", Label: "Date", Type: "date", Required: true},
			},
			row: func(e core.Expense) []string {
				return []string{core.DatePart(e.OccurredAt), e.Description, idCell(e.BudgetCategoryID), formatEuros(e.Amount)}
			},
			values: func(e core.Expense) map[string]string {
				return map[string]string{
					"budget_category_id": idValue(e.BudgetCategoryID),
					"amount":             amountValue(e.Amount),
					"description":        e.Description,
					"occurred_at":        core.DatePart(e.OccurredAt),
				}
			},
			parse: parseExpense,
		},
		&binding[core.SavingsEntry]{
			svc:       a.Savings,
			title:     "Savings",
			columns:   []string{"Description", "Amount"},
			aggregate: true,
			fields: []formField{
				{Name: "monthly_budget_id", Label: "Budget", Type: "hidden"},
				{Name: "amount", Label: "Amount", Type: "text", Required: true},
				{Name: "description", Label: "Description", Type: "text", Required: true},
			},
			row: func(e core.SavingsEntry) []string {
				return []string{e.Description, formatEuros(e.Amount)}
			},
			values: func(e core.SavingsEntry) map[string]string {
				v := map[string]string{"amount": amountValue(e.Amount), "description": e.Description}
				if e.MonthlyBudgetID != nil {
					v["monthly_budget_id"] = idValue(*e.MonthlyBudgetID)
				}
				return v
			},
			parse: parseSavings,
		},
		&binding[core.BudgetCategory]{
			svc:     a.Categories,
			title:   "Budget categories",
			columns: []string{"Name", "Target %", "Target"},
			fields: []formField{
				{Name: "monthly_budget_id", Label: "Budget", Type: "hidden"},
				{Name: "name", Label: "Name", Type: "text", Required: true},
				{Name: "target_percentage", Label: "Target %", Type: "text"},
				{Name: "target_amount", Label: "Target amount", Type: "text"},
			},
			row: func(c core.BudgetCategory) []string {
				return []string{c.Name, formatPercent(c.TargetPercentage), formatEuros(c.TargetAmount)}
			},
			values: func(c core.BudgetCategory) map[string]string {
				return map[string]string{
					"monthly_budget_id": idValue(c.MonthlyBudgetID),
					"name":              c.Name,
					"target_percentage": c.TargetPercentage.String(),
					"target_amount":     amountValue(c.TargetAmount),
				}
			},
			parse: parseCategory,
		},
		&binding[core.CategoryTemplate]{
			svc:     a.Templates,
			title:   "Category templates",
			columns: []string{"Name", "Default %"},
			fields: []formField{
				{Name: "name", Label: "Name", Type: "text", Required: true},
				{Name: "default_percentage", Label: "Default %", Type: "text"},
			},
			row: func(t core.CategoryTemplate) []string {
				return []string{t.Name, formatPercent(t.DefaultPercentage)}
			},
			values: func(t core.CategoryTemplate) map[string]string {
				return map[string]string{"name": t.Name, "default_percentage": t.DefaultPercentage.String()}
			},
			parse: parseTemplate,
		},
		&binding[core.MonthlyBudget]{
			svc:     a.Budgets.CollectionService,
			title:   "Monthly budgets",
			columns: []string{"Month", "Planned income", "Status"},
			fields: []formField{
				{Name: "month", Label: "Month", Type: "number", Required: true, Step: "1"},
				{Name: "year", Label: "Year", Type: "number", Required: true, Step: "1"},
				{Name: "total_planned_income", Label: "Planned income", Type: "text"},
			},
			row: func(b core.MonthlyBudget) []string {
				status := "closed"
				if b.IsActive {
					status = "active"
				}
				return []string{b.Label(), formatEuros(b.TotalPlannedIncome), status}
			},
			values: func(b core.MonthlyBudget) map[string]string {
				return map[string]string{
					"month":                strconv.Itoa(b.Month),
					"year":                 strconv.Itoa(b.Year),
					"total_planned_income": amountValue(b.TotalPlannedIncome),
				}
			},
			parse:  parseBudget,
			active: func(b core.MonthlyBudget) bool { return b.IsActive },
		},
	}

	out := make(map[string]collectionHandler, len(all))
	for _, h := range all {
		out[h.name()] = h
	}
	return out
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (collectionHandler, bool) {
	h, ok := s.collections[r.PathValue("collection")]
	if !ok {
		NotFoundError("Unknown collection").Write(w)
	}
	return h, ok
}

// handleCollectionList triggers a load and renders the list partial.
func (s *Server) handleCollectionList(w http.ResponseWriter, r *http.Request) {
	h, ok := s.collection(w, r)
	if !ok {
		return
	}
	parent := parentParam(r.URL.Query())
	h.list(r.Context(), parent)
	s.renderCollection(w, r, h, parent, NewHTMXResponse())
}

// handleCollectionSave creates or updates a record from the submitted form.
// Failures answer 422 so the form stays open.
func (s *Server) handleCollectionSave(w http.ResponseWriter, r *http.Request) {
	h, ok := s.collection(w, r)
	if !ok {
		return
	}
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	err := h.save(r.Context(), fields{p: body})
	var fe *FieldError
	switch {
	case errors.As(err, &fe):
		log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected form field",
			log.FieldCollection, h.name(), "field", fe.Field, log.FieldError, fe.Err.Error())
		UnprocessableEntityError(FieldMessage(fe)).
			TriggerErrorNotification("Error", FieldMessage(fe)).
			Write(w)
		return
	case err != nil:
		UnprocessableEntityError(operationMessage(err, "Could not save.")).
			Notifications(drainNotifications(r.Context())).
			Write(w)
		return
	}

	resp := NewHTMXResponse().
		TriggerCollectionChanged(h.name()).
		TriggerFormReset().
		TriggerDashboardRefresh()
	s.renderCollection(w, r, h, parentParam(r.URL.Query()), resp)
}

// handleCollectionDelete removes a record and renders the list.
func (s *Server) handleCollectionDelete(w http.ResponseWriter, r *http.Request) {
	h, ok := s.collection(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		BadRequestError(FieldMessage(err)).Write(w)
		return
	}

	resp := NewHTMXResponse()
	if err := h.remove(r.Context(), id); err == nil {
		resp.TriggerDashboardRefresh()
	} else if errors.Is(err, services.ErrNotLoaded) {
		NotFoundError("Record not found").Write(w)
		return
	}
	s.renderCollection(w, r, h, parentParam(r.URL.Query()), resp)
}

// handleCollectionSelect binds the form to a loaded record for editing.
func (s *Server) handleCollectionSelect(w http.ResponseWriter, r *http.Request) {
	h, ok := s.collection(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		BadRequestError(FieldMessage(err)).Write(w)
		return
	}
	if !h.selectRecord(id) {
		NotFoundError("Record not found").Write(w)
		return
	}
	s.renderCollection(w, r, h, parentParam(r.URL.Query()), NewHTMXResponse())
}

// handleCollectionDeselect puts the form back into create mode.
func (s *Server) handleCollectionDeselect(w http.ResponseWriter, r *http.Request) {
	h, ok := s.collection(w, r)
	if !ok {
		return
	}
	h.clearSelection()
	s.renderCollection(w, r, h, parentParam(r.URL.Query()), NewHTMXResponse())
}

// handleCollectionClearError dismisses the collection error.
func (s *Server) handleCollectionClearError(w http.ResponseWriter, r *http.Request) {
	h, ok := s.collection(w, r)
	if !ok {
		return
	}
	h.clearError()
	s.renderCollection(w, r, h, parentParam(r.URL.Query()), NewHTMXResponse())
}

func (s *Server) renderCollection(w http.ResponseWriter, r *http.Request, h collectionHandler, parent int64, resp *HTMXResponseBuilder) {
	out, err := s.render("collection", h.view(parent))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender, log.FieldCollection, h.name(), log.FieldError, err.Error())
		InternalServerError("Rendering failed").Write(w)
		return
	}
	resp.Notifications(drainNotifications(r.Context())).HTML(out).Write(w)
}
