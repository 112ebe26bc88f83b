// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by users
// and formatting decimal amounts for display.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount bounds user input to what the backend decimal columns accept.
var maxAmount = decimal.New(1, 12)

// ParseAmount converts a user-typed decimal string to a two-place amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive.
// Returns ErrInvalidAmount for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (half-up)
//	ParseAmount("12.344") -> 12.34, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	// Signs and exponents are accepted by decimal but never by the forms
	if strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePercentage parses a percentage in the 0-100 range. Zero is allowed.
func ParsePercentage(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidPercentage
	}
	d = d.Round(2)
	if d.IsNegative() || d.GreaterThan(hundred) {
		return decimal.Zero, ErrInvalidPercentage
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals, e.g. "1234.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// jsonNumber encodes a decimal as a bare JSON number for request payloads.
// decimal.Decimal marshals as a quoted string, which the API rejects on writes.
func jsonNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

var hundred = decimal.NewFromInt(100)
