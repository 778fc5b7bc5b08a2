// Package core defines the domain entities of the money tracker and the
// amount handling rules shared by every component.
//
// Amounts are float64 values rounded to two decimal places at the point of
// user input. Aggregation downstream performs plain floating arithmetic on
// already-rounded values.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RoundAmount rounds a monetary amount to two decimal places, half away
// from zero. Every amount entering the system goes through this exactly once.
func RoundAmount(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// ParseAmount parses a user-supplied amount string into a rounded amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative values are rejected; zero is allowed so that accounts can be
// opened with an empty starting balance.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Round(2).Float64()
	return f, nil
}
