package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultThresholdPct is the alert threshold applied when none is given.
const DefaultThresholdPct = 80.0

const (
	LevelOK          AlertLevel = "ok"
	LevelApproaching AlertLevel = "approaching"
	LevelExceeded    AlertLevel = "exceeded"
)

type (
	AlertLevel string

	Budget struct {
		Category     string
		Month        Month
		Limit        Money
		ThresholdPct float64
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// BudgetAlert is the evaluation of one budget against the ledger. It doubles as
	// the status report returned by status queries.
	BudgetAlert struct {
		Category     string
		Month        Month
		Limit        Money
		Spent        Money
		Remaining    Money // negative when over budget
		Fraction     decimal.Decimal
		ThresholdPct float64
		Level        AlertLevel
		Count        int64
	}
)

func ValidateThreshold(pct float64) error {
	if pct < 1 || pct > 100 {
		return Invalid("alert_threshold", decimal.NewFromFloat(pct).String(), "must be between 1 and 100")
	}
	return nil
}

func (b Budget) Validate() error {
	if err := validateCategory(b.Category); err != nil {
		return err
	}
	if b.Month.IsZero() {
		return Invalid("month", "", "is required")
	}
	if b.Limit.Cents <= 0 {
		return Invalid("limit", b.Limit.String(), "must be positive")
	}
	return ValidateThreshold(b.ThresholdPct)
}

// EvaluateBudget classifies spent against the budget with exact decimal arithmetic.
func EvaluateBudget(b Budget, spent Money, count int64) BudgetAlert {
	fraction := decimal.Zero
	if b.Limit.Cents > 0 {
		fraction = spent.Decimal().Div(b.Limit.Decimal())
	}
	threshold := decimal.NewFromFloat(b.ThresholdPct).Div(hundred)

	level := LevelOK
	switch {
	case fraction.GreaterThanOrEqual(decimal.NewFromInt(1)):
		level = LevelExceeded
	case fraction.GreaterThanOrEqual(threshold):
		level = LevelApproaching
	}

	return BudgetAlert{
		Category:     b.Category,
		Month:        b.Month,
		Limit:        b.Limit,
		Spent:        spent,
		Remaining:    b.Limit.Sub(spent),
		Fraction:     fraction,
		ThresholdPct: b.ThresholdPct,
		Level:        level,
		Count:        count,
	}
}

// Percent returns the fraction as a percentage rounded to one decimal place.
func (a BudgetAlert) Percent() float64 {
	f, _ := a.Fraction.Mul(hundred).Round(1).Float64()
	return f
}

// Message renders a human-readable line for the alert, empty for LevelOK.
func (a BudgetAlert) Message() string {
	var head string
	switch a.Level {
	case LevelExceeded:
		head = "BUDGET EXCEEDED"
	case LevelApproaching:
		head = "BUDGET WARNING"
	default:
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s spent %s of %s (%.1f%%)", head, a.Category, a.Month, a.Spent, a.Limit, a.Percent())
	if a.Remaining.Cents < 0 {
		fmt.Fprintf(&b, ", over by %s", Money{Cents: -a.Remaining.Cents})
	} else {
		fmt.Fprintf(&b, ", %s remaining", a.Remaining)
	}
	return b.String()
}
