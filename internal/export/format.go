// Package export renders ledger rows to CSV or JSON files and to a Google Sheets tab.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatSheets Format = "sheets"
)

// Header is the CSV header row.
var Header = []string{"id", "date", "amount", "category", "subcategory", "description"}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatSheets:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", core.Invalid("format", s, "must be csv, json or sheets")
	}
}

// Record is the uniform export shape of one expense.
type Record struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Description string  `json:"description"`
}

func NewRecord(e core.Expense) Record {
	return Record{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount.Float64(),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Description: e.Description,
	}
}

// MarshalRow converts an expense to a CSV row.
func MarshalRow(e core.Expense) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Date.String(),
		e.Amount.String(),
		e.Category,
		e.Subcategory,
		e.Description,
	}
}

// SheetRow converts an expense to a Sheets row. Amounts go as numbers so the sheet can sum them.
func SheetRow(e core.Expense) []any {
	return []any{e.ID, e.Date.String(), e.Amount.Float64(), e.Category, e.Subcategory, e.Description}
}

// WriteCSV writes expenses to w (including header).
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range expenses {
		if err := cw.Write(MarshalRow(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes expenses to w as an indented JSON array.
func WriteJSON(w io.Writer, expenses []core.Expense) error {
	records := make([]Record, len(expenses))
	for i, e := range expenses {
		records[i] = NewRecord(e)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
