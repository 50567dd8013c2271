package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceAmount converts user input into a non-negative money amount.
// Anything that does not parse as a finite, non-negative number becomes zero;
// settings edits never fail on bad numeric input.
func CoerceAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Cents rounds an amount to two decimal places.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
