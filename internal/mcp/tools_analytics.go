package mcp

import (
	"context"
	"strconv"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"expensetracker/internal/core"
)

const defaultTopLimit = 10

type MonthlyTrendsInput struct {
	Year     int    `json:"year" jsonschema:"calendar year, e.g. 2024"`
	Category string `json:"category,omitempty" jsonschema:"only count this category"`
}

type MonthlyTrendsResult struct {
	Year     int             `json:"year"`
	Category string          `json:"category,omitempty"`
	Months   []MonthTotalDTO `json:"months"`
	Total    float64         `json:"total"`
}

type TopExpensesInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"inclusive start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"inclusive end date (YYYY-MM-DD)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"how many expenses to return (default 10)"`
}

type TopExpensesResult struct {
	Expenses []ExpenseDTO `json:"expenses"`
}

type CategoryBreakdownInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"inclusive start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"inclusive end date (YYYY-MM-DD)"`
}

type CategoryBreakdownResult struct {
	Categories []CategoryBreakdownDTO `json:"categories"`
	Total      float64                `json:"total"`
}

func registerAnalyticsTools(server *sdk.Server, svc Services) {
	addTool(server, &sdk.Tool{
		Name:        "get_monthly_trends",
		Description: "Returns the spending of each month of a year, zero-filled",
	}, monthlyTrendsHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "get_top_expenses",
		Description: "Returns the largest expenses in a date range",
	}, topExpensesHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "get_category_breakdown",
		Description: "Splits spending by category and subcategory over a date range",
	}, categoryBreakdownHandler(svc))
}

func monthlyTrendsHandler(svc Services) func(context.Context, MonthlyTrendsInput) (MonthlyTrendsResult, error) {
	return func(ctx context.Context, in MonthlyTrendsInput) (MonthlyTrendsResult, error) {
		months, err := svc.Analytics.MonthlyTrends(ctx, in.Year, in.Category)
		if err != nil {
			return MonthlyTrendsResult{}, err
		}
		res := MonthlyTrendsResult{Year: in.Year, Category: in.Category, Months: make([]MonthTotalDTO, 0, len(months))}
		var total core.Money
		for _, m := range months {
			res.Months = append(res.Months, MonthTotalDTO{Month: m.Month, Total: m.Total.Float64(), Count: m.Count})
			total = total.Add(m.Total)
		}
		res.Total = total.Float64()
		return res, nil
	}
}

func topExpensesHandler(svc Services) func(context.Context, TopExpensesInput) (TopExpensesResult, error) {
	return func(ctx context.Context, in TopExpensesInput) (TopExpensesResult, error) {
		r, err := parseRange(in.StartDate, in.EndDate)
		if err != nil {
			return TopExpensesResult{}, err
		}
		limit := in.Limit
		if limit == 0 {
			limit = defaultTopLimit
		}
		if limit < 0 {
			return TopExpensesResult{}, core.Invalid("limit", strconv.Itoa(limit), "must be at least 1")
		}
		es, err := svc.Analytics.TopExpenses(ctx, r, limit)
		if err != nil {
			return TopExpensesResult{}, err
		}
		return TopExpensesResult{Expenses: toExpenseDTOs(es)}, nil
	}
}

func categoryBreakdownHandler(svc Services) func(context.Context, CategoryBreakdownInput) (CategoryBreakdownResult, error) {
	return func(ctx context.Context, in CategoryBreakdownInput) (CategoryBreakdownResult, error) {
		r, err := parseRange(in.StartDate, in.EndDate)
		if err != nil {
			return CategoryBreakdownResult{}, err
		}
		m, err := svc.Analytics.CategoryBreakdown(ctx, r)
		if err != nil {
			return CategoryBreakdownResult{}, err
		}
		cats, total := toBreakdownDTOs(m)
		return CategoryBreakdownResult{Categories: cats, Total: total}, nil
	}
}
