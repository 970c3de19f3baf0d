// Package budget derives monthly and daily summaries and the savings goal
// status from a set of transactions. Everything here is recomputed from its
// inputs on every call.
package budget

import (
	"budgetplanner/internal/core"
	"budgetplanner/internal/log"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Converter converts an amount between two currency codes.
// *rates.Table and *rates.Store both satisfy it.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Summary is the monthly overview in the display currency.
type Summary struct {
	Month              string                            `json:"month"`
	Currency           string                            `json:"currency"`
	TotalIncome        decimal.Decimal                   `json:"totalIncome"`
	TotalExpenses      decimal.Decimal                   `json:"totalExpenses"`
	TotalSavings       decimal.Decimal                   `json:"totalSavings"`
	SavingsRate        decimal.Decimal                   `json:"savingsRate"`
	ExpensesByCategory map[core.Category]decimal.Decimal `json:"expensesByCategory"`
	// Skipped counts transactions left out because their currency could not
	// be converted.
	Skipped int `json:"skipped,omitempty"`
}

// ComputeSummary totals the incomes and expenses of settings.SelectedMonth,
// each converted to settings.Currency before summing.
func ComputeSummary(incomes, expenses []core.Transaction, settings core.Settings, conv Converter) Summary {
	s := Summary{
		Month:              settings.SelectedMonth,
		Currency:           settings.Currency,
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		ExpensesByCategory: make(map[core.Category]decimal.Decimal, len(core.ExpenseCategories)),
	}
	for _, c := range core.ExpenseCategories {
		s.ExpensesByCategory[c] = decimal.Zero
	}

	for _, t := range incomes {
		if t.Month != settings.SelectedMonth {
			continue
		}
		v, ok := convert(conv, t, settings.Currency)
		if !ok {
			s.Skipped++
			continue
		}
		s.TotalIncome = s.TotalIncome.Add(v)
	}

	for _, t := range expenses {
		if t.Month != settings.SelectedMonth {
			continue
		}
		v, ok := convert(conv, t, settings.Currency)
		if !ok {
			s.Skipped++
			continue
		}
		s.TotalExpenses = s.TotalExpenses.Add(v)
		if cur, known := s.ExpensesByCategory[t.Category]; known {
			s.ExpensesByCategory[t.Category] = cur.Add(v)
		}
	}

	s.TotalSavings = s.TotalIncome.Sub(s.TotalExpenses)
	s.SavingsRate = SavingsRate(s.TotalIncome, s.TotalSavings)
	return s
}

// SavingsRate returns savings as a percentage of income, or 0 when there is
// no positive income.
func SavingsRate(income, savings decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return savings.Div(income).Mul(hundred)
}

func convert(conv Converter, t core.Transaction, to string) (decimal.Decimal, bool) {
	v, err := conv.Convert(t.Amount, t.Currency, to)
	if err != nil {
		log.Default(log.ComponentBudget).Warn("Skipping transaction with unconvertible currency",
			log.FieldTransactionID, t.ID,
			log.FieldCurrency, t.Currency,
			"display_currency", to,
			log.FieldError, err)
		return decimal.Zero, false
	}
	return v, true
}
