package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func TestSummaryReadsStores(t *testing.T) {
	deps, _ := testDeps(nil)
	incomes := NewIncomeService(&fakeRemote[core.Income]{items: []core.Income{{ID: 1, Amount: amount("2000")}}}, deps)
	expenses := NewExpenseService(&fakeRemote[core.Expense]{items: []core.Expense{
		{ID: 1, BudgetCategoryID: 10, Amount: amount("300")},
		{ID: 2, BudgetCategoryID: 10, Amount: amount("200")},
	}}, deps)
	savings := NewSavingsService(&fakeRemote[core.SavingsEntry]{items: []core.SavingsEntry{{ID: 1, Amount: amount("150")}}}, deps)
	categories := NewCategoryService(&fakeRemote[core.BudgetCategory]{items: []core.BudgetCategory{
		{ID: 10, Name: "Food", TargetAmount: amount("400")},
	}}, deps)
	budgets := NewBudgetService(&fakeRemote[core.MonthlyBudget]{items: []core.MonthlyBudget{
		{ID: 5, Month: 6, Year: 2025, TotalPlannedIncome: amount("2000"), IsActive: true},
	}}, deps)

	ctx := context.Background()
	incomes.List(ctx, 0)
	expenses.List(ctx, 0)
	savings.List(ctx, 0)
	categories.List(ctx, 0)
	budgets.List(ctx, 0)

	o := Summary(incomes, expenses, savings, categories, budgets)

	assert.True(t, o.TotalIncome.Equal(amount("2000")))
	assert.True(t, o.TotalExpenses.Equal(amount("500")))
	assert.True(t, o.Balance.Equal(amount("1500")))
	assert.True(t, o.TotalSavings.Equal(amount("150")))
	assert.True(t, o.SpentPercent.Equal(amount("25")))
	require.NotNil(t, o.ActiveBudget)
	assert.Equal(t, int64(5), o.ActiveBudget.ID)
	require.Len(t, o.Categories, 1)
	assert.True(t, o.Categories[0].Percent.Equal(amount("100")), "spending over target is capped")
}

func TestSummaryScopesExpensesToActiveBudget(t *testing.T) {
	deps, _ := testDeps(nil)
	incomes := NewIncomeService(&fakeRemote[core.Income]{items: []core.Income{{ID: 1, Amount: amount("1000")}}}, deps)
	expenses := NewExpenseService(&fakeRemote[core.Expense]{items: []core.Expense{
		{ID: 1, BudgetCategoryID: 10, Amount: amount("100")},
		{ID: 2, BudgetCategoryID: 99, Amount: amount("700")},
	}}, deps)
	savings := NewSavingsService(&fakeRemote[core.SavingsEntry]{}, deps)
	categories := NewCategoryService(&fakeRemote[core.BudgetCategory]{items: []core.BudgetCategory{
		{ID: 10, MonthlyBudgetID: 5, Name: "Food"},
	}}, deps)
	budgets := NewBudgetService(&fakeRemote[core.MonthlyBudget]{items: []core.MonthlyBudget{
		{ID: 5, Month: 6, Year: 2025, TotalPlannedIncome: amount("1000"), IsActive: true},
	}}, deps)

	ctx := context.Background()
	incomes.List(ctx, 5)
	expenses.List(ctx, 0)
	categories.List(ctx, 5)
	budgets.List(ctx, 0)

	o := Summary(incomes, expenses, savings, categories, budgets)
	assert.True(t, o.TotalExpenses.Equal(amount("100")), "expenses of other budgets are left out")
	assert.True(t, o.Balance.Equal(amount("900")))
	assert.True(t, o.SpentPercent.Equal(amount("10")))

	budgets.Reset()
	o = Summary(incomes, expenses, savings, categories, budgets)
	assert.True(t, o.TotalExpenses.Equal(amount("800")), "without an active budget every expense counts")
}
