// Package dictionary serves the fixed vocabularies the web UI renders in
// pickers: expense categories and wallet currencies.
package dictionary

import (
	"github.com/govalues/money"

	"github.com/supaspend/ledger/internal/ledger"
)

type CategoryDef struct {
	Code  ledger.Category `json:"code"`
	Label string          `json:"label"`
}

type CurrencyDef struct {
	Code  ledger.Currency `json:"code"`
	Label string          `json:"label"`
	// Scale is the number of minor-unit digits the currency displays.
	Scale int `json:"scale"`
}

var categoryLabels = map[ledger.Category]string{
	"Travel":         "Travel",
	"Supplies":       "Supplies",
	"Meals":          "Meals & Dining",
	"Transportation": "Transportation",
	"Entertainment":  "Entertainment",
	"Office":         "Office",
	"Marketing":      "Marketing",
	"Utilities":      "Utilities",
	"Other":          "Other",
}

var currencyLabels = map[ledger.Currency]string{
	ledger.CurrencyUSD: "US Dollar",
	ledger.CurrencyVND: "Vietnamese Dong",
	ledger.CurrencyIDR: "Indonesian Rupiah",
	ledger.CurrencyPHP: "Philippine Peso",
}

// Categories returns the canonical categories in display order.
func Categories() []CategoryDef {
	out := make([]CategoryDef, 0, len(ledger.Categories))
	for _, c := range ledger.Categories {
		label, ok := categoryLabels[c]
		if !ok {
			label = string(c)
		}
		out = append(out, CategoryDef{Code: c, Label: label})
	}
	return out
}

// Currencies returns the supported wallet currencies in display order.
func Currencies() []CurrencyDef {
	out := make([]CurrencyDef, 0, len(ledger.Currencies))
	for _, c := range ledger.Currencies {
		def := CurrencyDef{Code: c, Label: currencyLabels[c]}
		if curr, err := money.ParseCurr(string(c)); err == nil {
			def.Scale = curr.Scale()
		}
		out = append(out, def)
	}
	return out
}
