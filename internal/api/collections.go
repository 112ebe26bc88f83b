package api

import "saldo/internal/core"

// Collection paths and the query parameter each one is scoped by.
const (
	PathIncomes           = "/incomes"
	PathExpenses          = "/expenses"
	PathSavingsEntries    = "/savings-entries"
	PathBudgetCategories  = "/budget-categories"
	PathCategoryTemplates = "/category-templates"
	PathMonthlyBudgets    = "/monthly-budgets"

	ParamMonthlyBudgetID  = "monthlyBudgetId"
	ParamBudgetCategoryID = "budgetCategoryId"
)

func Incomes(c *Client) *Resource[core.Income] {
	return NewResource[core.Income](c, PathIncomes, ParamMonthlyBudgetID)
}

func Expenses(c *Client) *Resource[core.Expense] {
	return NewResource[core.Expense](c, PathExpenses, ParamBudgetCategoryID)
}

func SavingsEntries(c *Client) *Resource[core.SavingsEntry] {
	return NewResource[core.SavingsEntry](c, PathSavingsEntries, ParamMonthlyBudgetID)
}

func BudgetCategories(c *Client) *Resource[core.BudgetCategory] {
	return NewResource[core.BudgetCategory](c, PathBudgetCategories, ParamMonthlyBudgetID)
}

func CategoryTemplates(c *Client) *Resource[core.CategoryTemplate] {
	return NewResource[core.CategoryTemplate](c, PathCategoryTemplates, "")
}

func MonthlyBudgets(c *Client) *Resource[core.MonthlyBudget] {
	return NewResource[core.MonthlyBudget](c, PathMonthlyBudgets, "")
}
