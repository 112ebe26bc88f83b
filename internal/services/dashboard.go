package services

import "saldo/internal/core"

// Summary computes the dashboard overview from what the stores hold now.
// It never triggers a load. With an active budget, incomes and categories
// are already scoped to it; expenses are narrowed to those categories so
// both sides of the balance cover the same month.
func Summary(incomes *IncomeService, expenses *ExpenseService, savings *SavingsService, categories *CategoryService, budgets *BudgetService) core.Overview {
	in := incomes.State()
	ex := expenses.State()
	sv := savings.State()
	cats := categories.State().Items
	active := budgets.Active()

	items, spent := ex.Items, ex.Aggregate
	if active != nil {
		items, spent = core.ExpensesIn(cats, ex.Items)
	}
	return core.Summarize(in.Aggregate, spent, sv.Aggregate, active, cats, items)
}
