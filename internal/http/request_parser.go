// Package http serves the saldo web UI.
//
// This file implements utilities for parsing and validating HTTP request data:
// body decoding for form and JSON submissions, path and query ids, and the
// mapping from submitted fields to entities.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// maxBodyBytes bounds submitted forms.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// FieldError reports a submitted field that could not be parsed.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// fieldMessages are the user-facing texts of parse failures.
var fieldMessages = map[error]string{
	core.ErrInvalidAmount:     "Enter a valid amount greater than zero.",
	core.ErrInvalidPercentage: "Enter a percentage between 0 and 100.",
	errInvalidNumber:          "Enter a whole number.",
}

var errInvalidNumber = errors.New("invalid number")

// FieldMessage returns the text shown for a parse failure.
func FieldMessage(err error) string {
	for sentinel, msg := range fieldMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "Invalid form data."
}

// fields reads typed values from a parsed body.
type fields struct {
	p *RequestBodyParser
}

func (f fields) str(key string) string { return f.p.Get(key) }

// id parses an optional positive integer; empty means zero.
func (f fields) id(key string) (int64, error) {
	v := f.p.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, &FieldError{Field: key, Err: errInvalidNumber}
	}
	return n, nil
}

func (f fields) integer(key string) (int, error) {
	n, err := f.id(key)
	return int(n), err
}

func (f fields) amount(key string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(f.p.Get(key))
	if err != nil {
		return d, &FieldError{Field: key, Err: err}
	}
	return d, nil
}

// optionalAmount accepts an empty field as zero.
func (f fields) optionalAmount(key string) (decimal.Decimal, error) {
	if f.p.Get(key) == "" {
		return decimal.Zero, nil
	}
	return f.amount(key)
}

func (f fields) percentage(key string) (decimal.Decimal, error) {
	d, err := core.ParsePercentage(f.p.Get(key))
	if err != nil {
		return d, &FieldError{Field: key, Err: err}
	}
	return d, nil
}

func (f fields) boolean(key string) bool {
	switch strings.ToLower(f.p.Get(key)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func parseIncome(f fields) (core.Income, error) {
	id, errID := f.id("id")
	parent, errParent := f.id("monthly_budget_id")
	amount, errAmount := f.amount("amount")
	return core.Income{
		ID:              id,
		MonthlyBudgetID: parent,
		Amount:          amount,
		Source:          f.str("source"),
		ReceivedAt:      f.str("received_at"),
	}, firstErr(errID, errParent, errAmount)
}

func parseExpense(f fields) (core.Expense, error) {
	id, errID := f.id("id")
	parent, errParent := f.id("budget_category_id")
	amount, errAmount := f.amount("amount")
	return core.Expense{
		ID:               id,
		BudgetCategoryID: parent,
		Amount:           amount,
		Description:      f.str("description"),
		OccurredAt:       f.str("occurred_at"),
	}, firstErr(errID, errParent, errAmount)
}

// parseSavings leaves the budget reference nil when none is given.
func parseSavings(f fields) (core.SavingsEntry, error) {
	id, errID := f.id("id")
	parent, errParent := f.id("monthly_budget_id")
	amount, errAmount := f.amount("amount")
	s := core.SavingsEntry{
		ID:          id,
		Amount:      amount,
		Description: f.str("description"),
	}
	if parent != 0 {
		s.MonthlyBudgetID = &parent
	}
	return s, firstErr(errID, errParent, errAmount)
}

func parseCategory(f fields) (core.BudgetCategory, error) {
	id, errID := f.id("id")
	parent, errParent := f.id("monthly_budget_id")
	percent, errPercent := f.percentage("target_percentage")
	target, errTarget := f.optionalAmount("target_amount")
	return core.BudgetCategory{
		ID:               id,
		MonthlyBudgetID:  parent,
		Name:             f.str("name"),
		TargetPercentage: percent,
		TargetAmount:     target,
	}, firstErr(errID, errParent, errPercent, errTarget)
}

func parseTemplate(f fields) (core.CategoryTemplate, error) {
	id, errID := f.id("id")
	percent, errPercent := f.percentage("default_percentage")
	return core.CategoryTemplate{
		ID:                id,
		Name:              f.str("name"),
		DefaultPercentage: percent,
	}, firstErr(errID, errPercent)
}

func parseBudget(f fields) (core.MonthlyBudget, error) {
	id, errID := f.id("id")
	month, errMonth := f.integer("month")
	year, errYear := f.integer("year")
	planned, errPlanned := f.optionalAmount("total_planned_income")
	return core.MonthlyBudget{
		ID:                 id,
		Month:              month,
		Year:               year,
		TotalPlannedIncome: planned,
		IsActive:           f.boolean("is_active"),
	}, firstErr(errID, errMonth, errYear, errPlanned)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &FieldError{Field: "id", Err: errInvalidNumber}
	}
	return id, nil
}

// parentParam parses the optional ?parent= filter of list requests.
func parentParam(query url.Values) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(query.Get("parent")), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
