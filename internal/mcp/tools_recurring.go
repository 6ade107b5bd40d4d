package mcp

import (
	"context"
	"fmt"
	"strconv"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"expensetracker/internal/core"
)

type AddRecurringInput struct {
	Amount      float64 `json:"amount" jsonschema:"positive amount of each occurrence"`
	Category    string  `json:"category" jsonschema:"category of the generated expenses"`
	Subcategory string  `json:"subcategory,omitempty" jsonschema:"optional subcategory"`
	Description string  `json:"description,omitempty" jsonschema:"optional note copied into each occurrence"`
	Frequency   string  `json:"frequency" jsonschema:"daily, weekly, monthly or yearly"`
	StartDate   string  `json:"start_date" jsonschema:"first occurrence (YYYY-MM-DD); recorded immediately"`
	EndDate     string  `json:"end_date,omitempty" jsonschema:"optional last day an occurrence may fall on (YYYY-MM-DD)"`
}

type AddRecurringResult struct {
	Recurring    RecurringDTO    `json:"recurring"`
	FirstExpense ExpenseDTO      `json:"first_expense"`
	BudgetAlert  *BudgetAlertDTO `json:"budget_alert,omitempty"`
	Message      string          `json:"message"`
}

type ListRecurringInput struct {
	ActiveOnly *bool `json:"active_only,omitempty" jsonschema:"only list active definitions (default true)"`
}

type ListRecurringResult struct {
	Recurring []RecurringDTO `json:"recurring"`
}

type DeactivateRecurringInput struct {
	ID int64 `json:"id" jsonschema:"recurring expense identifier"`
}

type DeactivateRecurringResult struct {
	Recurring RecurringDTO `json:"recurring"`
	Message   string       `json:"message"`
}

func registerRecurringTools(server *sdk.Server, svc Services) {
	addTool(server, &sdk.Tool{
		Name:        "add_recurring_expense",
		Description: "Defines a recurring expense and records its first occurrence on start_date",
	}, addRecurringHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "list_recurring_expenses",
		Description: "Lists recurring expense definitions",
	}, listRecurringHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "deactivate_recurring_expense",
		Description: "Stops a recurring expense; already recorded occurrences stay in the ledger",
	}, deactivateRecurringHandler(svc))
}

func addRecurringHandler(svc Services) func(context.Context, AddRecurringInput) (AddRecurringResult, error) {
	return func(ctx context.Context, in AddRecurringInput) (AddRecurringResult, error) {
		amount, err := core.MoneyFromFloat(in.Amount)
		if err != nil {
			return AddRecurringResult{}, err
		}
		freq, err := core.ParseFrequency(in.Frequency)
		if err != nil {
			return AddRecurringResult{}, err
		}
		start, err := core.ParseDate("start_date", in.StartDate)
		if err != nil {
			return AddRecurringResult{}, err
		}
		var end core.Date
		if in.EndDate != "" {
			if end, err = core.ParseDate("end_date", in.EndDate); err != nil {
				return AddRecurringResult{}, err
			}
		}

		def, first, alert, err := svc.Recurring.Add(ctx, core.RecurringDraft{
			Category:    in.Category,
			Subcategory: in.Subcategory,
			Description: in.Description,
			Amount:      amount,
			Frequency:   freq,
			StartDate:   start,
			EndDate:     end,
		})
		if err != nil {
			return AddRecurringResult{}, err
		}
		msg := fmt.Sprintf("Recurring %s expense %d created, first occurrence recorded as expense %d, next due %s",
			def.Frequency, def.ID, first.ID, def.NextDue)
		if alert != nil && alert.Level != core.LevelOK {
			msg += ". " + alert.Message()
		}
		return AddRecurringResult{
			Recurring:    toRecurringDTO(def),
			FirstExpense: toExpenseDTO(first),
			BudgetAlert:  optionalAlert(alert),
			Message:      msg,
		}, nil
	}
}

func listRecurringHandler(svc Services) func(context.Context, ListRecurringInput) (ListRecurringResult, error) {
	return func(ctx context.Context, in ListRecurringInput) (ListRecurringResult, error) {
		activeOnly := true
		if in.ActiveOnly != nil {
			activeOnly = *in.ActiveOnly
		}
		defs, err := svc.Recurring.List(ctx, activeOnly)
		if err != nil {
			return ListRecurringResult{}, err
		}
		res := ListRecurringResult{Recurring: make([]RecurringDTO, 0, len(defs))}
		for _, d := range defs {
			res.Recurring = append(res.Recurring, toRecurringDTO(d))
		}
		return res, nil
	}
}

func deactivateRecurringHandler(svc Services) func(context.Context, DeactivateRecurringInput) (DeactivateRecurringResult, error) {
	return func(ctx context.Context, in DeactivateRecurringInput) (DeactivateRecurringResult, error) {
		if in.ID <= 0 {
			return DeactivateRecurringResult{}, core.Invalid("id", strconv.FormatInt(in.ID, 10), "must be positive")
		}
		def, err := svc.Recurring.Deactivate(ctx, in.ID)
		if err != nil {
			return DeactivateRecurringResult{}, err
		}
		return DeactivateRecurringResult{
			Recurring: toRecurringDTO(def),
			Message:   fmt.Sprintf("Recurring expense %d deactivated", def.ID),
		}, nil
	}
}
