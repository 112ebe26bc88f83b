package services

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/store"
)

// Store options per entity type. Categories and templates track no
// aggregate; only monthly budgets have a server-declared active record.
var (
	IncomeStoreOptions = store.Options[core.Income]{
		ID:     func(i core.Income) int64 { return i.ID },
		Amount: func(i core.Income) decimal.Decimal { return i.Amount },
	}
	ExpenseStoreOptions = store.Options[core.Expense]{
		ID:     func(e core.Expense) int64 { return e.ID },
		Amount: func(e core.Expense) decimal.Decimal { return e.Amount },
	}
	SavingsStoreOptions = store.Options[core.SavingsEntry]{
		ID:     func(s core.SavingsEntry) int64 { return s.ID },
		Amount: func(s core.SavingsEntry) decimal.Decimal { return s.Amount },
	}
	CategoryStoreOptions = store.Options[core.BudgetCategory]{
		ID: func(c core.BudgetCategory) int64 { return c.ID },
	}
	TemplateStoreOptions = store.Options[core.CategoryTemplate]{
		ID: func(t core.CategoryTemplate) int64 { return t.ID },
	}
	BudgetStoreOptions = store.Options[core.MonthlyBudget]{
		ID:     func(b core.MonthlyBudget) int64 { return b.ID },
		Active: func(b core.MonthlyBudget) bool { return b.IsActive },
	}
)

func describeIncome(i core.Income) (decimal.Decimal, string) { return i.Amount, i.Source }

func describeExpense(e core.Expense) (decimal.Decimal, string) { return e.Amount, e.Description }

func describeSavings(s core.SavingsEntry) (decimal.Decimal, string) { return s.Amount, s.Description }

func describeCategory(c core.BudgetCategory) (decimal.Decimal, string) {
	return c.TargetAmount, c.Name
}

func describeTemplate(t core.CategoryTemplate) (decimal.Decimal, string) {
	return t.DefaultPercentage, t.Name
}

func describeBudget(b core.MonthlyBudget) (decimal.Decimal, string) {
	return b.TotalPlannedIncome, b.Label()
}

type (
	IncomeService   = CollectionService[core.Income]
	ExpenseService  = CollectionService[core.Expense]
	SavingsService  = CollectionService[core.SavingsEntry]
	CategoryService = CollectionService[core.BudgetCategory]
	TemplateService = CollectionService[core.CategoryTemplate]
)

func NewIncomeService(r Remote[core.Income], deps Deps) *IncomeService {
	return NewCollectionService(r, store.New(IncomeStoreOptions), IncomeMessages, describeIncome, deps)
}

func NewExpenseService(r Remote[core.Expense], deps Deps) *ExpenseService {
	return NewCollectionService(r, store.New(ExpenseStoreOptions), ExpenseMessages, describeExpense, deps)
}

func NewSavingsService(r Remote[core.SavingsEntry], deps Deps) *SavingsService {
	return NewCollectionService(r, store.New(SavingsStoreOptions), SavingsMessages, describeSavings, deps)
}

func NewCategoryService(r Remote[core.BudgetCategory], deps Deps) *CategoryService {
	return NewCollectionService(r, store.New(CategoryStoreOptions), CategoryMessages, describeCategory, deps)
}

func NewTemplateService(r Remote[core.CategoryTemplate], deps Deps) *TemplateService {
	return NewCollectionService(r, store.New(TemplateStoreOptions), TemplateMessages, describeTemplate, deps)
}

func NewBudgetService(r Remote[core.MonthlyBudget], deps Deps) *BudgetService {
	svc := NewCollectionService(r, store.New(BudgetStoreOptions), BudgetMessages, describeBudget, deps)
	svc.carry = keepBudgetStatus
	return &BudgetService{svc}
}

// keepBudgetStatus stops edits from reopening or closing a budget; only
// CloseBudget changes is_active.
func keepBudgetStatus(stored, edited core.MonthlyBudget) core.MonthlyBudget {
	edited.IsActive = stored.IsActive
	return edited
}
