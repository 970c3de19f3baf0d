// Package rates holds exchange rates relative to the base currency and
// converts amounts between currencies.
package rates

import (
	"fmt"
	"strings"
	"time"

	"budgetplanner/internal/core"
	"budgetplanner/internal/currency"

	"github.com/shopspring/decimal"
)

// DefaultStaleAfter is how old a fetched table may get before a refresh is due.
const DefaultStaleAfter = time.Hour

// Rates are units of a currency per one unit of currency.Base.
var fallback = map[string]string{
	"USD": "1",
	"EUR": "0.92",
	"GBP": "0.79",
	"JPY": "149.50",
	"CAD": "1.36",
	"AUD": "1.53",
	"CHF": "0.88",
	"CNY": "7.24",
	"INR": "83.12",
	"PHP": "56.50",
	"NGN": "1550",
	"BRL": "4.97",
	"MXN": "17.15",
	"KRW": "1320",
	"SGD": "1.34",
}

// Table is an immutable snapshot of exchange rates. UpdatedAt is nil until a
// refresh has succeeded.
type Table struct {
	Rates     map[string]decimal.Decimal
	UpdatedAt *time.Time
}

// Fallback returns the static table used when no fetched rates exist.
func Fallback() *Table {
	t := &Table{Rates: make(map[string]decimal.Decimal, len(fallback))}
	for code, v := range fallback {
		t.Rates[code] = decimal.RequireFromString(v)
	}
	return t
}

// Normalize returns a copy of rates restricted to supported currencies with
// positive values. Missing codes take their fallback value and the base
// currency is pinned to 1.
func Normalize(rates map[string]decimal.Decimal, updatedAt *time.Time) *Table {
	t := Fallback()
	for code, v := range rates {
		code = strings.ToUpper(code)
		if _, ok := t.Rates[code]; ok && v.IsPositive() {
			t.Rates[code] = v
		}
	}
	t.Rates[currency.Base] = decimal.NewFromInt(1)
	if updatedAt != nil {
		at := *updatedAt
		t.UpdatedAt = &at
	}
	return t
}

// Rate returns the rate for code.
func (t *Table) Rate(code string) (decimal.Decimal, error) {
	r, ok := t.Rates[strings.ToUpper(code)]
	if !ok || !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrUnknownCurrency, code)
	}
	return r, nil
}

// Convert converts amount from one currency to another through the base
// currency. Identical codes return amount untouched. No rounding is applied.
func (t *Table) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromRate, err := t.Rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := t.Rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(fromRate).Mul(toRate), nil
}

// IsStale reports whether the table was never refreshed or is older than maxAge.
func (t *Table) IsStale(now time.Time, maxAge time.Duration) bool {
	if t.UpdatedAt == nil {
		return true
	}
	return t.UpdatedAt.Before(now.Add(-maxAge))
}

// withFetched returns a new table where every supported code present in
// fetched with a positive value replaces the current rate.
func (t *Table) withFetched(fetched map[string]decimal.Decimal, at time.Time) *Table {
	next := &Table{Rates: make(map[string]decimal.Decimal, len(t.Rates)), UpdatedAt: &at}
	for code, v := range t.Rates {
		next.Rates[code] = v
	}
	for _, code := range currency.Codes() {
		if v, ok := fetched[code]; ok && v.IsPositive() {
			next.Rates[code] = v
		}
	}
	next.Rates[currency.Base] = decimal.NewFromInt(1)
	return next
}
