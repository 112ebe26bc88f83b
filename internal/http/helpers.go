package http

import (
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// templateFuncs are available to every template.
var templateFuncs = template.FuncMap{
	"euros":   formatEuros,
	"percent": formatPercent,
	"date":    core.DatePart,
	"barWidth": func(p decimal.Decimal) int {
		return int(p.Round(0).IntPart())
	},
}

// formatEuros renders an amount as "€1.234,50".
func formatEuros(d decimal.Decimal) string {
	neg := d.IsNegative()
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	s := "€" + b.String() + "," + frac
	if neg {
		return "-" + s
	}
	return s
}

// formatPercent renders a percentage with at most one decimal, e.g. "12,5%".
func formatPercent(d decimal.Decimal) string {
	return strings.Replace(d.Round(1).String(), ".", ",", 1) + "%"
}
