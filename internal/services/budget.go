package services

import (
	"context"

	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/notify"
)

// BudgetService adds the monthly budget lifecycle to the collection
// operations: loading one budget for display and closing the active one.
type BudgetService struct {
	*CollectionService[core.MonthlyBudget]
}

// Load fetches one budget and makes it the client-side selection.
// An expired session yields (nil, nil).
func (b *BudgetService) Load(ctx context.Context, id int64) (*core.MonthlyBudget, error) {
	n := notify.FromContext(ctx, b.notifier)
	ctx = context.WithoutCancel(ctx)

	budget, err := b.remote.Get(ctx, id)
	if api.IsUnauthenticated(err) {
		return nil, nil
	}
	if err != nil {
		return nil, b.fail(ctx, n, log.OpRead, api.MessageOf(err, budgetLoadOneError), err)
	}
	b.store.SetSelected(&budget)
	return &budget, nil
}

// CloseBudget marks the budget inactive. The active selection is recomputed
// from the updated record.
func (b *BudgetService) CloseBudget(ctx context.Context, budget core.MonthlyBudget) error {
	n := notify.FromContext(ctx, b.notifier)
	ctx = context.WithoutCancel(ctx)

	closed, err := b.remote.Update(ctx, budget.ID, budget.ClosePayload())
	if err != nil {
		return b.fail(ctx, n, log.OpClose, api.MessageOf(err, budgetCloseError), err)
	}
	b.store.EntityUpdated(closed)
	notify.Success(ctx, n, budgetClosedTitle, budgetClosedText)
	b.confirmed(ctx, core.OpClosed, closed)
	return nil
}

// CloseByID closes a budget held by the store.
func (b *BudgetService) CloseByID(ctx context.Context, id int64) error {
	budget, ok := b.store.Find(id)
	if !ok {
		return &OperationError{Op: log.OpClose, Message: budgetCloseError, Err: ErrNotLoaded}
	}
	return b.CloseBudget(ctx, budget)
}

// Active returns the budget the server flags as active.
func (b *BudgetService) Active() *core.MonthlyBudget {
	return b.State().Active
}
