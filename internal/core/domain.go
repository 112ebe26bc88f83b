package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entity is implemented by every record the API exposes as a collection.
// Payload methods return the request bodies the backend expects, which are
// narrower than the record itself (no id, no server timestamps).
type Entity interface {
	EntityID() int64
	Validate() error
	CreatePayload() any
	UpdatePayload() any
}

type (
	User struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		CreatedAt string `json:"created_at,omitempty"`
	}

	Income struct {
		ID              int64           `json:"id"`
		MonthlyBudgetID int64           `json:"monthly_budget_id"`
		Amount          decimal.Decimal `json:"amount"`
		Source          string          `json:"source"`
		ReceivedAt      string          `json:"received_at"`
	}

	Expense struct {
		ID               int64           `json:"id"`
		BudgetCategoryID int64           `json:"budget_category_id"`
		Amount           decimal.Decimal `json:"amount"`
		Description      string          `json:"description"`
		OccurredAt       string          `json:"occurred_at"`
	}

	SavingsEntry struct {
		ID              int64           `json:"id"`
		UserID          int64           `json:"user_id,omitempty"`
		MonthlyBudgetID *int64          `json:"monthly_budget_id"`
		Amount          decimal.Decimal `json:"amount"`
		Description     string          `json:"description"`
		CreatedAt       string          `json:"created_at,omitempty"`
	}

	BudgetCategory struct {
		ID               int64           `json:"id"`
		MonthlyBudgetID  int64           `json:"monthly_budget_id"`
		Name             string          `json:"name"`
		TargetPercentage decimal.Decimal `json:"target_percentage"`
		TargetAmount     decimal.Decimal `json:"target_amount"`
	}

	CategoryTemplate struct {
		ID                int64           `json:"id"`
		UserID            int64           `json:"user_id,omitempty"`
		Name              string          `json:"name"`
		DefaultPercentage decimal.Decimal `json:"default_percentage"`
	}

	MonthlyBudget struct {
		ID                 int64           `json:"id"`
		UserID             int64           `json:"user_id,omitempty"`
		Month              int             `json:"month"`
		Year               int             `json:"year"`
		TotalPlannedIncome decimal.Decimal `json:"total_planned_income"`
		IsActive           bool            `json:"is_active"`
		CreatedAt          string          `json:"created_at,omitempty"`
		ClosedAt           *string         `json:"closed_at,omitempty"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidPercentage = errors.New("invalid percentage")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidYear       = errors.New("invalid year")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptySource       = errors.New("empty source")
	ErrEmptyName         = errors.New("empty name")
	ErrMissingParent     = errors.New("missing parent reference")
	ErrMalformedChange   = errors.New("malformed change")
)

const maxTextLength = 200

// DateLayout is the calendar date format the API accepts on writes.
const DateLayout = "2006-01-02"

// ValidateDate accepts plain dates and RFC 3339 timestamps.
func ValidateDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, s); err == nil {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return nil
	}
	return ErrInvalidDate
}

// DatePart trims an API timestamp to its calendar date.
func DatePart(s string) string {
	if len(s) >= len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}

func validateText(s string, empty error) error {
	if strings.TrimSpace(s) == "" {
		return empty
	}
	if len(s) > maxTextLength {
		return errors.New("text too long (max 200 characters)")
	}
	return nil
}

func validateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func validatePercentage(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(hundred) {
		return ErrInvalidPercentage
	}
	return nil
}

func (i Income) EntityID() int64 { return i.ID }

func (i Income) Validate() error {
	if err := validateAmount(i.Amount); err != nil {
		return err
	}
	if err := validateText(i.Source, ErrEmptySource); err != nil {
		return err
	}
	if err := ValidateDate(i.ReceivedAt); err != nil {
		return err
	}
	if i.ID == 0 && i.MonthlyBudgetID == 0 {
		return ErrMissingParent
	}
	return nil
}

func (i Income) CreatePayload() any {
	return struct {
		MonthlyBudgetID int64       `json:"monthly_budget_id"`
		Amount          json.Number `json:"amount"`
		Source          string      `json:"source"`
		ReceivedAt      string      `json:"received_at"`
	}{i.MonthlyBudgetID, jsonNumber(i.Amount), i.Source, i.ReceivedAt}
}

func (i Income) UpdatePayload() any {
	return struct {
		Amount     json.Number `json:"amount"`
		Source     string      `json:"source"`
		ReceivedAt string      `json:"received_at"`
	}{jsonNumber(i.Amount), i.Source, i.ReceivedAt}
}

func (e Expense) EntityID() int64 { return e.ID }

func (e Expense) Validate() error {
	if err := validateAmount(e.Amount); err != nil {
		return err
	}
	if err := validateText(e.Description, ErrEmptyDescription); err != nil {
		return err
	}
	if err := ValidateDate(e.OccurredAt); err != nil {
		return err
	}
	if e.ID == 0 && e.BudgetCategoryID == 0 {
		return ErrMissingParent
	}
	return nil
}

func (e Expense) CreatePayload() any {
	return struct {
		BudgetCategoryID int64       `json:"budget_category_id"`
		Amount           json.Number `json:"amount"`
		Description      string      `json:"description"`
		OccurredAt       string      `json:"occurred_at"`
	}{e.BudgetCategoryID, jsonNumber(e.Amount), e.Description, e.OccurredAt}
}

func (e Expense) UpdatePayload() any {
	return struct {
		Amount      json.Number `json:"amount"`
		Description string      `json:"description"`
		OccurredAt  string      `json:"occurred_at"`
	}{jsonNumber(e.Amount), e.Description, e.OccurredAt}
}

func (s SavingsEntry) EntityID() int64 { return s.ID }

func (s SavingsEntry) Validate() error {
	if err := validateAmount(s.Amount); err != nil {
		return err
	}
	return validateText(s.Description, ErrEmptyDescription)
}

// Savings entries may float outside any budget, so the parent id is sent as null.
func (s SavingsEntry) CreatePayload() any {
	return struct {
		MonthlyBudgetID *int64      `json:"monthly_budget_id"`
		Amount          json.Number `json:"amount"`
		Description     string      `json:"description"`
	}{s.MonthlyBudgetID, jsonNumber(s.Amount), s.Description}
}

func (s SavingsEntry) UpdatePayload() any {
	return s.CreatePayload()
}

func (c BudgetCategory) EntityID() int64 { return c.ID }

func (c BudgetCategory) Validate() error {
	if err := validateText(c.Name, ErrEmptyName); err != nil {
		return err
	}
	if err := validatePercentage(c.TargetPercentage); err != nil {
		return err
	}
	if c.TargetAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if c.ID == 0 && c.MonthlyBudgetID == 0 {
		return ErrMissingParent
	}
	return nil
}

func (c BudgetCategory) CreatePayload() any {
	return struct {
		MonthlyBudgetID  int64       `json:"monthly_budget_id"`
		Name             string      `json:"name"`
		TargetPercentage json.Number `json:"target_percentage"`
		TargetAmount     json.Number `json:"target_amount"`
	}{c.MonthlyBudgetID, c.Name, jsonNumber(c.TargetPercentage), jsonNumber(c.TargetAmount)}
}

func (c BudgetCategory) UpdatePayload() any {
	return struct {
		Name             string      `json:"name"`
		TargetPercentage json.Number `json:"target_percentage"`
		TargetAmount     json.Number `json:"target_amount"`
	}{c.Name, jsonNumber(c.TargetPercentage), jsonNumber(c.TargetAmount)}
}

func (t CategoryTemplate) EntityID() int64 { return t.ID }

func (t CategoryTemplate) Validate() error {
	if err := validateText(t.Name, ErrEmptyName); err != nil {
		return err
	}
	return validatePercentage(t.DefaultPercentage)
}

func (t CategoryTemplate) CreatePayload() any {
	return struct {
		Name              string      `json:"name"`
		DefaultPercentage json.Number `json:"default_percentage"`
	}{t.Name, jsonNumber(t.DefaultPercentage)}
}

func (t CategoryTemplate) UpdatePayload() any {
	return t.CreatePayload()
}

func (b MonthlyBudget) EntityID() int64 { return b.ID }

func (b MonthlyBudget) Validate() error {
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 2000 || b.Year > 2100 {
		return ErrInvalidYear
	}
	if b.TotalPlannedIncome.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

type budgetPayload struct {
	Month              int         `json:"month"`
	Year               int         `json:"year"`
	TotalPlannedIncome json.Number `json:"total_planned_income"`
	IsActive           bool        `json:"is_active"`
}

// CreatePayload opens new budgets as active.
func (b MonthlyBudget) CreatePayload() any {
	return budgetPayload{b.Month, b.Year, jsonNumber(b.TotalPlannedIncome), true}
}

func (b MonthlyBudget) UpdatePayload() any {
	return budgetPayload{b.Month, b.Year, jsonNumber(b.TotalPlannedIncome), b.IsActive}
}

// ClosePayload is the partial update that closes a budget.
func (b MonthlyBudget) ClosePayload() any {
	return struct {
		IsActive bool `json:"is_active"`
	}{false}
}

// Label renders a budget as "MM/YYYY".
func (b MonthlyBudget) Label() string {
	return time.Date(b.Year, time.Month(b.Month), 1, 0, 0, 0, 0, time.UTC).Format("01/2006")
}
