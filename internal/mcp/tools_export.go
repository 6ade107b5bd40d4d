package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"expensetracker/internal/export"
)

type ExportInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"inclusive start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"inclusive end date (YYYY-MM-DD)"`
	Filename  string `json:"filename,omitempty" jsonschema:"file name inside the export directory; extension added when missing"`
	Format    string `json:"format,omitempty" jsonschema:"csv (default), json or sheets"`
}

type ExportResult struct {
	Path    string `json:"path,omitempty"`
	Count   int    `json:"count"`
	Format  string `json:"format"`
	Message string `json:"message"`
}

func registerExportTools(server *sdk.Server, svc Services) {
	addTool(server, &sdk.Tool{
		Name:        "export_to_file",
		Description: "Exports the expenses of a date range to a CSV or JSON file, or to the configured spreadsheet",
	}, exportHandler(svc))
}

func exportHandler(svc Services) func(context.Context, ExportInput) (ExportResult, error) {
	return func(ctx context.Context, in ExportInput) (ExportResult, error) {
		r, err := parseRange(in.StartDate, in.EndDate)
		if err != nil {
			return ExportResult{}, err
		}
		format, err := export.ParseFormat(in.Format)
		if err != nil {
			return ExportResult{}, err
		}
		res, err := svc.Exporter.Export(ctx, export.Request{Range: r, Filename: in.Filename, Format: format})
		if err != nil {
			return ExportResult{}, err
		}

		msg := fmt.Sprintf("Exported %d expense(s) to %s", res.Count, res.Path)
		if res.Path == "" {
			msg = fmt.Sprintf("Appended %d expense(s) to the spreadsheet", res.Count)
		}
		return ExportResult{Path: res.Path, Count: res.Count, Format: string(res.Format), Message: msg}, nil
	}
}
