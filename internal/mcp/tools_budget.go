package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"expensetracker/internal/core"
)

type SetBudgetInput struct {
	Category       string   `json:"category" jsonschema:"category the limit applies to"`
	Month          string   `json:"month" jsonschema:"budget month in YYYY-MM format"`
	MonthlyLimit   float64  `json:"monthly_limit" jsonschema:"positive spending limit for the month"`
	AlertThreshold *float64 `json:"alert_threshold,omitempty" jsonschema:"percentage of the limit that raises a warning, 1 to 100 (default 80)"`
}

type BudgetResult struct {
	Budget  BudgetDTO `json:"budget"`
	Message string    `json:"message"`
}

type BudgetStatusInput struct {
	Month    string `json:"month" jsonschema:"budget month in YYYY-MM format"`
	Category string `json:"category,omitempty" jsonschema:"report a single category"`
}

type BudgetStatusResult struct {
	Month    string           `json:"month"`
	Budgets  []BudgetAlertDTO `json:"budgets"`
	Warnings []string         `json:"warnings"`
}

type ListBudgetsInput struct{}

type ListBudgetsResult struct {
	Budgets []BudgetDTO `json:"budgets"`
}

type DeleteBudgetInput struct {
	Category string `json:"category" jsonschema:"budget category"`
	Month    string `json:"month" jsonschema:"budget month in YYYY-MM format"`
}

type DeleteBudgetResult struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

func registerBudgetTools(server *sdk.Server, svc Services) {
	addTool(server, &sdk.Tool{
		Name:        "set_budget",
		Description: "Creates or replaces the spending limit of a category for one month",
	}, setBudgetHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "get_budget_status",
		Description: "Reports spent, remaining and alert level of the budgets of a month",
	}, budgetStatusHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "list_budgets",
		Description: "Lists every budget ordered by month then category",
	}, listBudgetsHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "delete_budget",
		Description: "Removes the budget of a category and month",
	}, deleteBudgetHandler(svc))
}

func setBudgetHandler(svc Services) func(context.Context, SetBudgetInput) (BudgetResult, error) {
	return func(ctx context.Context, in SetBudgetInput) (BudgetResult, error) {
		month, err := core.ParseMonth("month", in.Month)
		if err != nil {
			return BudgetResult{}, err
		}
		limit, err := core.MoneyFromFloat(in.MonthlyLimit)
		if err != nil {
			return BudgetResult{}, core.Invalid("monthly_limit", fmt.Sprint(in.MonthlyLimit), "must be a positive amount")
		}
		threshold := svc.DefaultThreshold
		if in.AlertThreshold != nil {
			threshold = *in.AlertThreshold
		}
		b, err := svc.Budgets.Set(ctx, in.Category, month, limit, threshold)
		if err != nil {
			return BudgetResult{}, err
		}
		return BudgetResult{
			Budget:  toBudgetDTO(b),
			Message: fmt.Sprintf("Budget for %s %s set to %s (alert at %g%%)", b.Category, b.Month, b.Limit, b.ThresholdPct),
		}, nil
	}
}

func budgetStatusHandler(svc Services) func(context.Context, BudgetStatusInput) (BudgetStatusResult, error) {
	return func(ctx context.Context, in BudgetStatusInput) (BudgetStatusResult, error) {
		month, err := core.ParseMonth("month", in.Month)
		if err != nil {
			return BudgetStatusResult{}, err
		}

		var statuses []core.BudgetAlert
		if in.Category != "" {
			s, err := svc.Budgets.Status(ctx, in.Category, month)
			if err != nil {
				return BudgetStatusResult{}, err
			}
			statuses = []core.BudgetAlert{s}
		} else if statuses, err = svc.Budgets.StatusForMonth(ctx, month); err != nil {
			return BudgetStatusResult{}, err
		}

		res := BudgetStatusResult{Month: month.String(), Budgets: make([]BudgetAlertDTO, 0, len(statuses)), Warnings: []string{}}
		for _, s := range statuses {
			res.Budgets = append(res.Budgets, toAlertDTO(s))
			if msg := s.Message(); msg != "" {
				res.Warnings = append(res.Warnings, msg)
			}
		}
		return res, nil
	}
}

func listBudgetsHandler(svc Services) func(context.Context, ListBudgetsInput) (ListBudgetsResult, error) {
	return func(ctx context.Context, _ ListBudgetsInput) (ListBudgetsResult, error) {
		bs, err := svc.Budgets.List(ctx)
		if err != nil {
			return ListBudgetsResult{}, err
		}
		res := ListBudgetsResult{Budgets: make([]BudgetDTO, 0, len(bs))}
		for _, b := range bs {
			res.Budgets = append(res.Budgets, toBudgetDTO(b))
		}
		return res, nil
	}
}

func deleteBudgetHandler(svc Services) func(context.Context, DeleteBudgetInput) (DeleteBudgetResult, error) {
	return func(ctx context.Context, in DeleteBudgetInput) (DeleteBudgetResult, error) {
		month, err := core.ParseMonth("month", in.Month)
		if err != nil {
			return DeleteBudgetResult{}, err
		}
		deleted, err := svc.Budgets.Delete(ctx, in.Category, month)
		if err != nil {
			return DeleteBudgetResult{}, err
		}
		msg := fmt.Sprintf("Budget for %s %s deleted", in.Category, month)
		if !deleted {
			msg = fmt.Sprintf("No budget for %s %s", in.Category, month)
		}
		return DeleteBudgetResult{Deleted: deleted, Message: msg}, nil
	}
}
