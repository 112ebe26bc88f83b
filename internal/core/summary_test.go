package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	budget := &MonthlyBudget{ID: 1, Month: 1, Year: 2025, TotalPlannedIncome: dec("2000"), IsActive: true}
	cats := []BudgetCategory{
		{ID: 10, Name: "Rent", TargetAmount: dec("800")},
		{ID: 11, Name: "Fun"},
	}
	exps := []Expense{
		{ID: 1, BudgetCategoryID: 10, Amount: dec("800")},
		{ID: 2, BudgetCategoryID: 11, Amount: dec("100")},
		{ID: 3, BudgetCategoryID: 10, Amount: dec("100")},
	}

	o := Summarize(dec("2500"), dec("1000"), dec("300"), budget, cats, exps)
	assert.Equal(t, "1500", o.Balance.String())
	assert.Equal(t, "50", o.SpentPercent.String())
	require.Len(t, o.Categories, 2)
	assert.Equal(t, "900", o.Categories[0].Spent.String())
	assert.Equal(t, "100", o.Categories[0].Percent.String(), "capped at 100")
	assert.True(t, o.Categories[1].Percent.IsZero(), "no target, no percent")
}

func TestSummarizeWithoutActiveBudget(t *testing.T) {
	o := Summarize(dec("10"), dec("20"), dec("0"), nil, nil, nil)
	assert.Equal(t, "-10", o.Balance.String())
	assert.True(t, o.SpentPercent.IsZero())
	assert.Nil(t, o.ActiveBudget)
}

func TestExpensesIn(t *testing.T) {
	cats := []BudgetCategory{{ID: 10}, {ID: 11}}
	exps := []Expense{
		{ID: 1, BudgetCategoryID: 10, Amount: dec("12.5")},
		{ID: 2, BudgetCategoryID: 30, Amount: dec("99")},
		{ID: 3, BudgetCategoryID: 11, Amount: dec("7.5")},
	}

	got, total := ExpensesIn(cats, exps)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, "20", total.String())

	got, total = ExpensesIn(nil, exps)
	assert.Empty(t, got)
	assert.True(t, total.IsZero())
}
