// Package core holds the SmartSpend domain model: transactions, category
// rules, the rule matcher, the bulk applier, and the pattern miner. Everything
// in this package is pure; persistence and transport live behind the ledger
// ports.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidAmount is returned for amounts that are empty, malformed,
// non-positive, NaN, or infinite.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//   ParseDecimalToCents("12.34") -> 1234, nil
//   ParseDecimalToCents("12,34") -> 1234, nil
//   ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//   ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	// Split into integer and fractional part
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	// Convert integer part - check for overflow
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64 = 0
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 {
				if fracPart[2] >= '5' {
					fracCents++
				}
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// CentsFromFloat converts a positive float amount to cents with half-up
// rounding on the third decimal place.
//
// The float is first rendered with its shortest exact decimal representation
// and then parsed digit by digit. Naive math.Floor(f*100+0.5) gets 12.345
// wrong because the nearest float64 to 12.345 sits just below it.
func CentsFromFloat(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return ParseDecimalToCents(strconv.FormatFloat(amount, 'f', -1, 64))
}

// SignedCents normalizes a user-supplied amount to signed cents, negative for
// expenses. A negative input already carries its sign; isExpense forces one.
func SignedCents(amount float64, isExpense bool) (int64, error) {
	cents, err := CentsFromFloat(math.Abs(amount))
	if err != nil {
		return 0, err
	}
	if isExpense || amount < 0 {
		return -cents, nil
	}
	return cents, nil
}

// Dollars returns the dollar value of cents as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func Dollars(cents int64) float64 {
	return float64(cents) / 100.0
}
