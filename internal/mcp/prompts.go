package mcp

import (
	"context"
	"fmt"
	"strconv"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"expensetracker/internal/core"
)

type promptDef struct {
	prompt *sdk.Prompt
	render func(args map[string]string) (string, error)
}

func prompts() []promptDef {
	return []promptDef{
		{
			prompt: &sdk.Prompt{
				Name:        "analyze_spending",
				Description: "Analyze spending patterns and suggest savings",
				Arguments: []*sdk.PromptArgument{
					{Name: "year", Description: "year to analyze (defaults to the current year)"},
				},
			},
			render: renderAnalyzeSpending,
		},
		{
			prompt: &sdk.Prompt{
				Name:        "monthly_report",
				Description: "Generate a comprehensive report for one month",
				Arguments: []*sdk.PromptArgument{
					{Name: "month", Description: "month in YYYY-MM format (defaults to the current month)"},
				},
			},
			render: renderMonthlyReport,
		},
		{
			prompt: &sdk.Prompt{
				Name:        "setup_budgets",
				Description: "Set up monthly budgets from recent spending",
				Arguments: []*sdk.PromptArgument{
					{Name: "month", Description: "month the budgets apply to (defaults to the current month)"},
				},
			},
			render: renderSetupBudgets,
		},
	}
}

func registerPrompts(server *sdk.Server) {
	for _, p := range prompts() {
		server.AddPrompt(p.prompt, promptHandler(p))
	}
}

func promptHandler(p promptDef) sdk.PromptHandler {
	return func(ctx context.Context, req *sdk.GetPromptRequest) (*sdk.GetPromptResult, error) {
		var args map[string]string
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		text, err := p.render(args)
		if err != nil {
			return nil, err
		}
		return &sdk.GetPromptResult{
			Description: p.prompt.Description,
			Messages: []*sdk.PromptMessage{
				{Role: "user", Content: &sdk.TextContent{Text: text}},
			},
		}, nil
	}
}

func monthArg(args map[string]string) (core.Month, error) {
	if s := args["month"]; s != "" {
		return core.ParseMonth("month", s)
	}
	return core.Today().Month(), nil
}

func renderAnalyzeSpending(args map[string]string) (string, error) {
	year := core.Today().Year()
	if s := args["year"]; s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 || y > 9999 {
			return "", core.Invalid("year", s, "must be a calendar year")
		}
		year = y
	}
	month := core.Today().Month()
	return fmt.Sprintf(`Please analyze my spending patterns:
1. Show me my monthly trends for %d (get_monthly_trends)
2. Identify my top 5 expense categories (summarize)
3. Check if I'm within budget for %s (get_budget_status)
4. Suggest areas where I could reduce spending`, year, month), nil
}

func renderMonthlyReport(args map[string]string) (string, error) {
	month, err := monthArg(args)
	if err != nil {
		return "", err
	}
	prev := month.FirstDay().AddDays(-1).Month()
	return fmt.Sprintf(`Generate a monthly report for %s (%s to %s) including:
1. Total spending and comparison to %s
2. Category breakdown with percentages (get_category_breakdown)
3. Budget status for all categories (get_budget_status)
4. Top 10 largest expenses (get_top_expenses)
5. Daily average spending`, month, month.FirstDay(), month.LastDay(), prev), nil
}

func renderSetupBudgets(args map[string]string) (string, error) {
	month, err := monthArg(args)
	if err != nil {
		return "", err
	}
	from := core.Month{Year: month.Year, Month: month.Month - 3}
	if from.Month < 1 {
		from = core.Month{Year: month.Year - 1, Month: from.Month + 12}
	}
	return fmt.Sprintf(`Help me set up monthly budgets for %s:
1. Show my average spending per category from %s to %s
2. Suggest reasonable budget limits based on my patterns
3. Set up budgets with %g%% alert thresholds (set_budget)
4. Explain how to track my progress`, month, from.FirstDay(), month.FirstDay().AddDays(-1), core.DefaultThresholdPct), nil
}
