package budget

import (
	"budgetplanner/internal/core"

	"github.com/shopspring/decimal"
)

// DailySummary holds the converted totals of a single calendar date.
type DailySummary struct {
	Date     string          `json:"date"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Savings  decimal.Decimal `json:"savings"`
}

func newDay(date string) DailySummary {
	return DailySummary{
		Date:     date,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Savings:  decimal.Zero,
	}
}

func (d *DailySummary) addIncome(v decimal.Decimal) {
	d.Income = d.Income.Add(v)
	d.Savings = d.Income.Sub(d.Expenses)
}

func (d *DailySummary) addExpense(v decimal.Decimal) {
	d.Expenses = d.Expenses.Add(v)
	d.Savings = d.Income.Sub(d.Expenses)
}

// ComputeDailySummary totals the transactions dated exactly date, converted to
// settings.Currency. A date without transactions yields all zeros.
func ComputeDailySummary(incomes, expenses []core.Transaction, date string, settings core.Settings, conv Converter) DailySummary {
	day := newDay(date)
	for _, t := range incomes {
		if t.Date != date {
			continue
		}
		if v, ok := convert(conv, t, settings.Currency); ok {
			day.addIncome(v)
		}
	}
	for _, t := range expenses {
		if t.Date != date {
			continue
		}
		if v, ok := convert(conv, t, settings.Currency); ok {
			day.addExpense(v)
		}
	}
	return day
}

// ComputeDailySummariesForMonth returns one summary per date of month that has
// at least one income or expense. Dates without transactions are absent.
func ComputeDailySummariesForMonth(incomes, expenses []core.Transaction, month string, settings core.Settings, conv Converter) map[string]DailySummary {
	days := make(map[string]DailySummary)
	add := func(t core.Transaction, income bool) {
		if t.Month != month {
			return
		}
		v, ok := convert(conv, t, settings.Currency)
		if !ok {
			return
		}
		day, seen := days[t.Date]
		if !seen {
			day = newDay(t.Date)
		}
		if income {
			day.addIncome(v)
		} else {
			day.addExpense(v)
		}
		days[t.Date] = day
	}
	for _, t := range incomes {
		add(t, true)
	}
	for _, t := range expenses {
		add(t, false)
	}
	return days
}
