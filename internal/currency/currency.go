// Package currency holds the static table of supported currencies and the
// display formatting applied to converted amounts.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Base is the currency every exchange rate is expressed against.
const Base = "USD"

// Currency describes a supported currency.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	// Digits is the number of minor-unit digits shown when formatting.
	Digits int32 `json:"digits"`
}

var all = []Currency{
	{Code: "USD", Symbol: "$", Name: "US Dollar", Digits: 2},
	{Code: "EUR", Symbol: "€", Name: "Euro", Digits: 2},
	{Code: "GBP", Symbol: "£", Name: "British Pound", Digits: 2},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Digits: 0},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", Digits: 2},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Digits: 2},
	{Code: "CHF", Symbol: "CHF", Name: "Swiss Franc", Digits: 2},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", Digits: 2},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Digits: 2},
	{Code: "PHP", Symbol: "₱", Name: "Philippine Peso", Digits: 2},
	{Code: "NGN", Symbol: "₦", Name: "Nigerian Naira", Digits: 2},
	{Code: "BRL", Symbol: "R$", Name: "Brazilian Real", Digits: 2},
	{Code: "MXN", Symbol: "MX$", Name: "Mexican Peso", Digits: 2},
	{Code: "KRW", Symbol: "₩", Name: "South Korean Won", Digits: 0},
	{Code: "SGD", Symbol: "S$", Name: "Singapore Dollar", Digits: 2},
}

var byCode = func() map[string]Currency {
	m := make(map[string]Currency, len(all))
	for _, c := range all {
		m[c.Code] = c
	}
	return m
}()

// All returns the supported currencies in display order.
func All() []Currency {
	return append([]Currency(nil), all...)
}

// Codes returns the supported currency codes in display order.
func Codes() []string {
	codes := make([]string, len(all))
	for i, c := range all {
		codes[i] = c.Code
	}
	return codes
}

// Lookup returns the currency for code.
func Lookup(code string) (Currency, bool) {
	c, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// IsSupported reports whether code is in the table.
func IsSupported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

var printer = message.NewPrinter(language.English)

// Format renders value in the given currency, e.g. "$1,234.50" or "¥1,235".
// Rounding to the currency's minor unit happens here and nowhere else.
// Unknown codes fall back to the base currency's formatting.
func Format(value decimal.Decimal, code string) string {
	c, ok := Lookup(code)
	if !ok {
		c = byCode[Base]
	}
	rounded := value.Round(c.Digits)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	verb := fmt.Sprintf("%%.%df", c.Digits)
	return sign + c.Symbol + printer.Sprintf(verb, rounded.InexactFloat64())
}
