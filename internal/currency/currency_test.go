package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	c, ok := Lookup("eur")
	assert.True(t, ok)
	assert.Equal(t, "€", c.Symbol)

	_, ok = Lookup("XYZ")
	assert.False(t, ok)

	assert.Len(t, Codes(), 15)
	assert.True(t, IsSupported(Base))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		value string
		code  string
		want  string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"0", "USD", "$0.00"},
		{"-42.125", "EUR", "-€42.13"},
		{"1234.6", "JPY", "¥1,235"},
		{"999999.4", "KRW", "₩999,999"},
		{"10", "XYZ", "$10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.code+"_"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(decimal.RequireFromString(tt.value), tt.code))
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	list := All()
	list[0].Code = "ZZZ"
	assert.Equal(t, "USD", All()[0].Code)
}
