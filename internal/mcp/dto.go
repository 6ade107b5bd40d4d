package mcp

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Wire shapes of the tool results. Amounts are in currency units.

type ExpenseDTO struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type BudgetAlertDTO struct {
	Category     string  `json:"category"`
	Month        string  `json:"month"`
	Limit        float64 `json:"limit"`
	Spent        float64 `json:"spent"`
	Remaining    float64 `json:"remaining"`
	Percentage   float64 `json:"percentage"`
	ThresholdPct float64 `json:"alert_threshold"`
	Level        string  `json:"level"`
	Count        int64   `json:"count"`
	Message      string  `json:"message,omitempty"`
}

type BudgetDTO struct {
	Category     string  `json:"category"`
	Month        string  `json:"month"`
	Limit        float64 `json:"limit"`
	ThresholdPct float64 `json:"alert_threshold"`
	UpdatedAt    string  `json:"updated_at"`
}

type RecurringDTO struct {
	ID          int64   `json:"id"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
	Frequency   string  `json:"frequency"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date,omitempty"`
	NextDue     string  `json:"next_due"`
	Active      bool    `json:"active"`
}

type CategoryTotalDTO struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int64   `json:"count"`
}

type MonthTotalDTO struct {
	Month int     `json:"month"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

type SubcategoryTotalDTO struct {
	Subcategory string  `json:"subcategory"`
	Total       float64 `json:"total"`
}

type CategoryBreakdownDTO struct {
	Category      string                `json:"category"`
	Total         float64               `json:"total"`
	Count         int64                 `json:"count"`
	Percentage    float64               `json:"percentage"`
	Subcategories []SubcategoryTotalDTO `json:"subcategories"`
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toExpenseDTO(e core.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount.Float64(),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Description: e.Description,
		CreatedAt:   formatTimestamp(e.CreatedAt),
	}
}

func toExpenseDTOs(es []core.Expense) []ExpenseDTO {
	out := make([]ExpenseDTO, 0, len(es))
	for _, e := range es {
		out = append(out, toExpenseDTO(e))
	}
	return out
}

func toAlertDTO(a core.BudgetAlert) BudgetAlertDTO {
	return BudgetAlertDTO{
		Category:     a.Category,
		Month:        a.Month.String(),
		Limit:        a.Limit.Float64(),
		Spent:        a.Spent.Float64(),
		Remaining:    a.Remaining.Float64(),
		Percentage:   a.Percent(),
		ThresholdPct: a.ThresholdPct,
		Level:        string(a.Level),
		Count:        a.Count,
		Message:      a.Message(),
	}
}

// optionalAlert returns nil when there is no budget for the written expense.
func optionalAlert(a *core.BudgetAlert) *BudgetAlertDTO {
	if a == nil {
		return nil
	}
	dto := toAlertDTO(*a)
	return &dto
}

func toBudgetDTO(b core.Budget) BudgetDTO {
	return BudgetDTO{
		Category:     b.Category,
		Month:        b.Month.String(),
		Limit:        b.Limit.Float64(),
		ThresholdPct: b.ThresholdPct,
		UpdatedAt:    formatTimestamp(b.UpdatedAt),
	}
}

func toRecurringDTO(r core.RecurringExpense) RecurringDTO {
	return RecurringDTO{
		ID:          r.ID,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Description: r.Description,
		Amount:      r.Amount.Float64(),
		Frequency:   string(r.Frequency),
		StartDate:   r.StartDate.String(),
		EndDate:     r.EndDate.String(),
		NextDue:     r.NextDue.String(),
		Active:      r.Active,
	}
}

// toBreakdownDTOs flattens the breakdown map, largest category first.
func toBreakdownDTOs(m map[string]core.CategoryBreakdown) ([]CategoryBreakdownDTO, float64) {
	var grand core.Money
	for _, b := range m {
		grand = grand.Add(b.Total)
	}

	out := make([]CategoryBreakdownDTO, 0, len(m))
	for cat, b := range m {
		subs := make([]SubcategoryTotalDTO, 0, len(b.Subcategories))
		for sub, total := range b.Subcategories {
			subs = append(subs, SubcategoryTotalDTO{Subcategory: sub, Total: total.Float64()})
		}
		sort.Slice(subs, func(i, j int) bool {
			if subs[i].Total != subs[j].Total {
				return subs[i].Total > subs[j].Total
			}
			return subs[i].Subcategory < subs[j].Subcategory
		})

		pct := 0.0
		if grand.Cents > 0 {
			pct, _ = b.Total.Decimal().Div(grand.Decimal()).Mul(hundred).Round(1).Float64()
		}
		out = append(out, CategoryBreakdownDTO{
			Category:      cat,
			Total:         b.Total.Float64(),
			Count:         b.Count,
			Percentage:    pct,
			Subcategories: subs,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return strings.Compare(out[i].Category, out[j].Category) < 0
	})
	return out, grand.Float64()
}
