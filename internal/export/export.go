package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/metrics"
)

// Lister is the ledger read surface the exporter needs.
type Lister interface {
	List(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error)
}

// SheetAppender appends rows to the configured spreadsheet tab.
type SheetAppender interface {
	AppendRows(ctx context.Context, rows [][]any) (int64, error)
}

type Request struct {
	Range    core.DateRange
	Filename string
	Format   Format
}

type Result struct {
	Path   string // empty for sheets exports
	Count  int
	Format Format
}

// Service writes export files into a single directory.
type Service struct {
	ledger Lister
	dir    string
	sheets SheetAppender
}

// NewService creates an exporter. sheets may be nil, which disables FormatSheets.
func NewService(ledger Lister, dir string, sheets SheetAppender) *Service {
	return &Service{ledger: ledger, dir: dir, sheets: sheets}
}

// Export renders the expenses of req.Range. An empty result is a valid export with Count 0.
func (s *Service) Export(ctx context.Context, req Request) (Result, error) {
	if req.Format == "" {
		req.Format = FormatCSV
	}
	if _, err := ParseFormat(string(req.Format)); err != nil {
		return Result{}, err
	}
	if req.Format == FormatSheets && s.sheets == nil {
		return Result{}, core.Invalid("format", string(req.Format), "sheets export is not configured")
	}

	expenses, err := s.ledger.List(ctx, core.ExpenseFilter{Range: req.Range})
	if err != nil {
		return Result{}, err
	}

	res := Result{Count: len(expenses), Format: req.Format}
	if req.Format == FormatSheets {
		if err := s.appendToSheet(ctx, expenses); err != nil {
			return Result{}, err
		}
	} else {
		name, err := FileName(req.Filename, req.Format, req.Range)
		if err != nil {
			return Result{}, err
		}
		if res.Path, err = s.writeFile(name, req.Format, expenses); err != nil {
			return Result{}, err
		}
	}

	metrics.ExportsTotal.WithLabelValues(string(req.Format)).Inc()
	slog.InfoContext(ctx, "Expenses exported",
		"format", req.Format,
		"count", res.Count,
		"path", res.Path)
	return res, nil
}

func (s *Service) appendToSheet(ctx context.Context, expenses []core.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	rows := make([][]any, len(expenses))
	for i, e := range expenses {
		rows[i] = SheetRow(e)
	}
	if _, err := s.sheets.AppendRows(ctx, rows); err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	return nil
}

// FileName reduces name to a bare file name inside the export directory and
// appends the format's extension when missing. An empty name is derived from the range.
func FileName(name string, format Format, r core.DateRange) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		from, to := r.Bounds()
		if r.IsOpen() {
			from, to = "all", "time"
		}
		name = fmt.Sprintf("expenses_%s_%s", from, to)
	}
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." || strings.HasPrefix(base, ".") {
		return "", core.Invalid("filename", name, "must name a regular file")
	}
	ext := "." + string(format)
	if !strings.HasSuffix(strings.ToLower(base), ext) {
		base += ext
	}
	return base, nil
}

// writeFile writes through a temp file and renames it, so readers never see a partial export.
func (s *Service) writeFile(name string, format Format, expenses []core.Expense) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return "", fmt.Errorf("resolve export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	switch format {
	case FormatJSON:
		err = WriteJSON(tmp, expenses)
	default:
		err = WriteCSV(tmp, expenses)
	}
	if err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename export file: %w", err)
	}
	return path, nil
}
