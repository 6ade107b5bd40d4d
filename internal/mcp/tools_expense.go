package mcp

import (
	"context"
	"fmt"
	"strconv"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"expensetracker/internal/core"
)

type AddExpenseInput struct {
	Date        string  `json:"date" jsonschema:"expense date in YYYY-MM-DD format"`
	Amount      float64 `json:"amount" jsonschema:"positive amount in currency units"`
	Category    string  `json:"category" jsonschema:"category from expense://categories"`
	Subcategory string  `json:"subcategory,omitempty" jsonschema:"optional subcategory of the category"`
	Description string  `json:"description,omitempty" jsonschema:"optional free-text note"`
}

type ExpenseWriteResult struct {
	Expense     ExpenseDTO      `json:"expense"`
	BudgetAlert *BudgetAlertDTO `json:"budget_alert,omitempty"`
	Message     string          `json:"message"`
}

type ListExpensesInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"inclusive start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"inclusive end date (YYYY-MM-DD)"`
	Category  string `json:"category,omitempty" jsonschema:"only list this category"`
}

type ListExpensesResult struct {
	Expenses []ExpenseDTO `json:"expenses"`
	Count    int          `json:"count"`
	Total    float64      `json:"total"`
}

type UpdateExpenseInput struct {
	ID          int64    `json:"id" jsonschema:"expense identifier"`
	Date        *string  `json:"date,omitempty" jsonschema:"new date (YYYY-MM-DD)"`
	Amount      *float64 `json:"amount,omitempty" jsonschema:"new positive amount"`
	Category    *string  `json:"category,omitempty" jsonschema:"new category"`
	Subcategory *string  `json:"subcategory,omitempty" jsonschema:"new subcategory; empty string clears it"`
	Description *string  `json:"description,omitempty" jsonschema:"new note"`
}

type DeleteExpenseInput struct {
	ID        int64   `json:"id,omitempty" jsonschema:"single expense identifier"`
	IDs       []int64 `json:"ids,omitempty" jsonschema:"several expense identifiers"`
	StartDate string  `json:"start_date,omitempty" jsonschema:"start of an inclusive date range (requires end_date)"`
	EndDate   string  `json:"end_date,omitempty" jsonschema:"end of an inclusive date range (requires start_date)"`
	Category  string  `json:"category,omitempty" jsonschema:"delete every expense of this category"`
	DeleteAll bool    `json:"delete_all,omitempty" jsonschema:"delete the whole ledger"`
}

type DeleteExpenseResult struct {
	DeletedCount int64  `json:"deleted_count"`
	Message      string `json:"message"`
}

type SummarizeInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"inclusive start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"inclusive end date (YYYY-MM-DD)"`
	Category  string `json:"category,omitempty" jsonschema:"only report this category"`
}

type SummarizeResult struct {
	Categories []CategoryTotalDTO `json:"categories"`
	Total      float64            `json:"total"`
	Count      int64              `json:"count"`
}

func registerExpenseTools(server *sdk.Server, svc Services) {
	addTool(server, &sdk.Tool{
		Name:        "add_expense",
		Description: "Records an expense and reports the budget status of its category and month",
	}, addExpenseHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "list_expenses",
		Description: "Lists expenses in a date range, oldest first",
	}, listExpensesHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "update_expense",
		Description: "Changes only the supplied fields of an expense",
	}, updateExpenseHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "delete_expense",
		Description: "Deletes expenses by id, ids, date range, category or delete_all; exactly one selector",
	}, deleteExpenseHandler(svc))
	addTool(server, &sdk.Tool{
		Name:        "summarize",
		Description: "Totals spending per category over a date range",
	}, summarizeHandler(svc))
}

func writeResult(e core.Expense, alert *core.BudgetAlert, verb string) ExpenseWriteResult {
	msg := fmt.Sprintf("Expense %d %s", e.ID, verb)
	if alert != nil && alert.Level != core.LevelOK {
		msg += ". " + alert.Message()
	}
	return ExpenseWriteResult{Expense: toExpenseDTO(e), BudgetAlert: optionalAlert(alert), Message: msg}
}

func addExpenseHandler(svc Services) func(context.Context, AddExpenseInput) (ExpenseWriteResult, error) {
	return func(ctx context.Context, in AddExpenseInput) (ExpenseWriteResult, error) {
		date, err := core.ParseDate("date", in.Date)
		if err != nil {
			return ExpenseWriteResult{}, err
		}
		amount, err := core.MoneyFromFloat(in.Amount)
		if err != nil {
			return ExpenseWriteResult{}, err
		}
		e, alert, err := svc.Ledger.Add(ctx, core.ExpenseDraft{
			Date:        date,
			Amount:      amount,
			Category:    in.Category,
			Subcategory: in.Subcategory,
			Description: in.Description,
		})
		if err != nil {
			return ExpenseWriteResult{}, err
		}
		return writeResult(e, alert, "added"), nil
	}
}

func listExpensesHandler(svc Services) func(context.Context, ListExpensesInput) (ListExpensesResult, error) {
	return func(ctx context.Context, in ListExpensesInput) (ListExpensesResult, error) {
		r, err := parseRange(in.StartDate, in.EndDate)
		if err != nil {
			return ListExpensesResult{}, err
		}
		es, err := svc.Ledger.List(ctx, core.ExpenseFilter{Range: r, Category: in.Category})
		if err != nil {
			return ListExpensesResult{}, err
		}
		var total core.Money
		for _, e := range es {
			total = total.Add(e.Amount)
		}
		return ListExpensesResult{Expenses: toExpenseDTOs(es), Count: len(es), Total: total.Float64()}, nil
	}
}

func updateExpenseHandler(svc Services) func(context.Context, UpdateExpenseInput) (ExpenseWriteResult, error) {
	return func(ctx context.Context, in UpdateExpenseInput) (ExpenseWriteResult, error) {
		if in.ID <= 0 {
			return ExpenseWriteResult{}, core.Invalid("id", strconv.FormatInt(in.ID, 10), "must be positive")
		}
		patch := core.ExpensePatch{
			Category:    in.Category,
			Subcategory: in.Subcategory,
			Description: in.Description,
		}
		if in.Date != nil {
			d, err := core.ParseDate("date", *in.Date)
			if err != nil {
				return ExpenseWriteResult{}, err
			}
			patch.Date = &d
		}
		if in.Amount != nil {
			m, err := core.MoneyFromFloat(*in.Amount)
			if err != nil {
				return ExpenseWriteResult{}, err
			}
			patch.Amount = &m
		}
		e, alert, err := svc.Ledger.Update(ctx, in.ID, patch)
		if err != nil {
			return ExpenseWriteResult{}, err
		}
		return writeResult(e, alert, "updated"), nil
	}
}

// selector turns the input into exactly one delete selector.
func (in DeleteExpenseInput) selector() (core.DeleteSelector, error) {
	var sels []core.DeleteSelector
	if in.ID != 0 {
		sels = append(sels, core.DeleteByID(in.ID))
	}
	if len(in.IDs) > 0 {
		sels = append(sels, core.DeleteByIDs(in.IDs))
	}
	if in.StartDate != "" || in.EndDate != "" {
		if in.StartDate == "" || in.EndDate == "" {
			return core.DeleteSelector{}, core.Invalid("start_date", in.StartDate, "date range deletion needs both start_date and end_date")
		}
		r, err := parseRange(in.StartDate, in.EndDate)
		if err != nil {
			return core.DeleteSelector{}, err
		}
		sels = append(sels, core.DeleteByDateRange(r))
	}
	if in.Category != "" {
		sels = append(sels, core.DeleteByCategory(in.Category))
	}
	if in.DeleteAll {
		sels = append(sels, core.DeleteAll())
	}

	switch len(sels) {
	case 0:
		return core.DeleteSelector{}, core.Invalid("selector", "", "specify one of id, ids, start_date+end_date, category or delete_all")
	case 1:
		return sels[0], nil
	default:
		return core.DeleteSelector{}, core.Invalid("selector", strconv.Itoa(len(sels)), "specify exactly one of id, ids, start_date+end_date, category or delete_all")
	}
}

func deleteExpenseHandler(svc Services) func(context.Context, DeleteExpenseInput) (DeleteExpenseResult, error) {
	return func(ctx context.Context, in DeleteExpenseInput) (DeleteExpenseResult, error) {
		sel, err := in.selector()
		if err != nil {
			return DeleteExpenseResult{}, err
		}
		n, err := svc.Ledger.Delete(ctx, sel)
		if err != nil {
			return DeleteExpenseResult{}, err
		}
		return DeleteExpenseResult{DeletedCount: n, Message: fmt.Sprintf("Deleted %d expense(s)", n)}, nil
	}
}

func summarizeHandler(svc Services) func(context.Context, SummarizeInput) (SummarizeResult, error) {
	return func(ctx context.Context, in SummarizeInput) (SummarizeResult, error) {
		r, err := parseRange(in.StartDate, in.EndDate)
		if err != nil {
			return SummarizeResult{}, err
		}
		totals, err := svc.Ledger.Summarize(ctx, r)
		if err != nil {
			return SummarizeResult{}, err
		}

		res := SummarizeResult{Categories: []CategoryTotalDTO{}}
		var grand core.Money
		for _, t := range totals {
			if in.Category != "" && t.Category != in.Category {
				continue
			}
			res.Categories = append(res.Categories, CategoryTotalDTO{Category: t.Category, Total: t.Total.Float64(), Count: t.Count})
			grand = grand.Add(t.Total)
			res.Count += t.Count
		}
		res.Total = grand.Float64()
		return res, nil
	}
}
