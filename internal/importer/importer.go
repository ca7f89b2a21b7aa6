package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/scriptboard/backend/internal/domain/script"
)

// Config describes where scripts live in a spreadsheet.
type Config struct {
	SheetName      string // empty means the first sheet
	TextColumn     string
	CategoryColumn string
	StartRow       int // 1-based; rows before it are headers
}

func DefaultConfig() Config {
	return Config{
		TextColumn:     "A",
		CategoryColumn: "B",
		StartRow:       2,
	}
}

// Result holds the scripts parsed from a file and the rows that were
// rejected.
type Result struct {
	Scripts        []*script.Script
	TotalProcessed int
	Skipped        int
	Errors         []string
}

// ScriptSaver persists parsed scripts.
type ScriptSaver interface {
	SaveScripts(ctx context.Context, scripts []*script.Script) error
}

// Import parses the file at path and saves every valid script for the
// learner in one batch.
func Import(ctx context.Context, saver ScriptSaver, path, learnerID string, cfg Config) (*Result, error) {
	res, err := ReadFile(path, learnerID, cfg)
	if err != nil {
		return nil, err
	}
	if len(res.Scripts) == 0 {
		return res, nil
	}
	if err := saver.SaveScripts(ctx, res.Scripts); err != nil {
		return nil, fmt.Errorf("save imported scripts: %w", err)
	}
	return res, nil
}

// ReadFile parses an .xlsx or .csv file, chosen by extension.
func ReadFile(path, learnerID string, cfg Config) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return ReadCSV(f, learnerID, cfg)
	}
	return ReadExcel(f, learnerID, cfg)
}

func ReadExcel(r io.Reader, learnerID string, cfg Config) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return parseRows(rows, learnerID, cfg)
}

func ReadCSV(r io.Reader, learnerID string, cfg Config) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return parseRows(rows, learnerID, cfg)
}

func parseRows(rows [][]string, learnerID string, cfg Config) (*Result, error) {
	textIdx, err := columnIndex(cfg.TextColumn)
	if err != nil {
		return nil, err
	}
	catIdx := -1
	if cfg.CategoryColumn != "" {
		if catIdx, err = columnIndex(cfg.CategoryColumn); err != nil {
			return nil, err
		}
	}

	result := &Result{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		result.TotalProcessed++

		text := cell(row, textIdx)
		if strings.TrimSpace(text) == "" {
			result.Skipped++
			continue
		}

		cat, err := script.ParseCategory(cell(row, catIdx))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		sc, err := script.New(learnerID, text, cat)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Scripts = append(result.Scripts, sc)
	}

	return result, nil
}

// columnIndex converts a column name such as "B" to a 0-based index.
func columnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", name, err)
	}
	return n - 1, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
