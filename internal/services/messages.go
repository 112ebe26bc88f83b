package services

// Messages are the user-facing texts of one collection.
type Messages struct {
	// Collection names the collection in logs and change events.
	Collection string

	LoadError   string
	SaveError   string
	DeleteError string

	CreatedTitle, CreatedText string
	UpdatedTitle, UpdatedText string
	DeletedTitle, DeletedText string
}

// ErrorTitle is the title of error notifications.
func (Messages) ErrorTitle() string { return "Error" }

var (
	IncomeMessages = Messages{
		Collection:   "incomes",
		LoadError:    "Error loading incomes.",
		SaveError:    "Error saving the income.",
		DeleteError:  "Error deleting the income.",
		CreatedTitle: "Income recorded",
		CreatedText:  "The new income was recorded successfully.",
		UpdatedTitle: "Income updated",
		UpdatedText:  "The income was updated successfully.",
		DeletedTitle: "Income deleted",
		DeletedText:  "The income was deleted successfully.",
	}

	ExpenseMessages = Messages{
		Collection:   "expenses",
		LoadError:    "Error loading expenses.",
		SaveError:    "Error saving the expense.",
		DeleteError:  "Error deleting the expense.",
		CreatedTitle: "Expense recorded",
		CreatedText:  "The new expense was recorded successfully.",
		UpdatedTitle: "Expense updated",
		UpdatedText:  "The expense was updated successfully.",
		DeletedTitle: "Expense deleted",
		DeletedText:  "The expense was deleted successfully.",
	}

	SavingsMessages = Messages{
		Collection:   "savings-entries",
		LoadError:    "Error loading savings entries.",
		SaveError:    "Error saving the savings entry.",
		DeleteError:  "Error deleting the savings entry.",
		CreatedTitle: "Savings recorded",
		CreatedText:  "The new savings entry was recorded successfully.",
		UpdatedTitle: "Savings updated",
		UpdatedText:  "The savings entry was updated successfully.",
		DeletedTitle: "Savings deleted",
		DeletedText:  "The savings entry was deleted successfully.",
	}

	CategoryMessages = Messages{
		Collection:   "budget-categories",
		LoadError:    "Error loading budget categories.",
		SaveError:    "Error saving the budget category.",
		DeleteError:  "Error deleting the budget category.",
		CreatedTitle: "Category created",
		CreatedText:  "The new category was created successfully.",
		UpdatedTitle: "Category updated",
		UpdatedText:  "The category was updated successfully.",
		DeletedTitle: "Category deleted",
		DeletedText:  "The category was deleted successfully.",
	}

	TemplateMessages = Messages{
		Collection:   "category-templates",
		LoadError:    "Error loading category templates.",
		SaveError:    "Error saving the category template.",
		DeleteError:  "Error deleting the category template.",
		CreatedTitle: "Template created",
		CreatedText:  "The new template was created successfully.",
		UpdatedTitle: "Template updated",
		UpdatedText:  "The template was updated successfully.",
		DeletedTitle: "Template deleted",
		DeletedText:  "The template was deleted successfully.",
	}

	BudgetMessages = Messages{
		Collection:   "monthly-budgets",
		LoadError:    "Error loading monthly budgets.",
		SaveError:    "Error saving the monthly budget.",
		DeleteError:  "Error deleting the budget.",
		CreatedTitle: "Budget created",
		CreatedText:  "The new budget was created successfully.",
		UpdatedTitle: "Budget updated",
		UpdatedText:  "The budget was updated successfully.",
		DeletedTitle: "Budget deleted",
		DeletedText:  "The budget was deleted successfully.",
	}
)

// Budget-only texts.
const (
	budgetLoadOneError = "Error loading the monthly budget."
	budgetCloseError   = "Error closing the budget."
	budgetClosedTitle  = "Budget closed"
	budgetClosedText   = "The budget was closed successfully."
)
