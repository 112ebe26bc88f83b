package core

import "github.com/shopspring/decimal"

// CategorySpending compares what was spent in a category with its target.
type CategorySpending struct {
	Category BudgetCategory
	Spent    decimal.Decimal
	// Percent of the target amount already spent, 0 when no target is set.
	Percent decimal.Decimal
}

// Overview is the dashboard summary of one session's loaded collections.
type Overview struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	TotalSavings  decimal.Decimal
	Balance       decimal.Decimal
	ActiveBudget  *MonthlyBudget
	// SpentPercent is expenses over planned income, capped at 100 for display.
	SpentPercent decimal.Decimal
	Categories   []CategorySpending
}

// Summarize builds the dashboard overview from already aggregated totals.
func Summarize(income, expenses, savings decimal.Decimal, active *MonthlyBudget, categories []BudgetCategory, expenseItems []Expense) Overview {
	o := Overview{
		TotalIncome:   income,
		TotalExpenses: expenses,
		TotalSavings:  savings,
		Balance:       income.Sub(expenses),
		ActiveBudget:  active,
		SpentPercent:  decimal.Zero,
	}
	if active != nil && active.TotalPlannedIncome.IsPositive() {
		o.SpentPercent = percentOf(expenses, active.TotalPlannedIncome)
	}

	spent := make(map[int64]decimal.Decimal, len(categories))
	for _, e := range expenseItems {
		spent[e.BudgetCategoryID] = spent[e.BudgetCategoryID].Add(e.Amount)
	}
	for _, c := range categories {
		cs := CategorySpending{Category: c, Spent: spent[c.ID], Percent: decimal.Zero}
		if c.TargetAmount.IsPositive() {
			cs.Percent = percentOf(cs.Spent, c.TargetAmount)
		}
		o.Categories = append(o.Categories, cs)
	}
	return o
}

// ExpensesIn keeps the expenses booked on one of categories and sums them.
func ExpensesIn(categories []BudgetCategory, expenses []Expense) ([]Expense, decimal.Decimal) {
	ids := make(map[int64]struct{}, len(categories))
	for _, c := range categories {
		ids[c.ID] = struct{}{}
	}
	total := decimal.Zero
	var out []Expense
	for _, e := range expenses {
		if _, ok := ids[e.BudgetCategoryID]; ok {
			out = append(out, e)
			total = total.Add(e.Amount)
		}
	}
	return out, total
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	p := part.Div(whole).Mul(hundred).Round(1)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
