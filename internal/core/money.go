// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Parsing and formatting go through
// shopspring/decimal so that no float arithmetic touches stored values.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents bounds a single amount to keep sums far away from int64 overflow.
const MaxCents int64 = 1_000_000_000_00

var hundred = decimal.NewFromInt(100)

type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return Invalid("amount", m.String(), "must be positive")
	}
	if m.Cents > MaxCents {
		return Invalid("amount", m.String(), "is too large")
	}
	return nil
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (half-up)
func ParseDecimalToCents(s string) (int64, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, Invalid("amount", raw, "must be a positive decimal number")
	}
	s = strings.ReplaceAll(s, ",", ".")
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, Invalid("amount", raw, "must be a positive decimal number")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, Invalid("amount", raw, "must be a positive decimal number")
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return 0, Invalid("amount", raw, "must be positive")
	}
	if cents.GreaterThan(decimal.NewFromInt(MaxCents)) {
		return 0, Invalid("amount", raw, "is too large")
	}
	return cents.IntPart(), nil
}

// MoneyFromFloat converts an amount received over a JSON boundary into cents.
// The shortest decimal form of v goes through ParseDecimalToCents, so 1.005
// becomes 101 cents rather than following the binary value down to 100.
func MoneyFromFloat(v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Money{}, Invalid("amount", strconv.FormatFloat(v, 'g', -1, 64), "must be a finite number")
	}
	cents, err := ParseDecimalToCents(strconv.FormatFloat(v, 'f', -1, 64))
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the amount in currency units for display and JSON payloads.
// Note: use Cents for arithmetic.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}
