package table

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSXFile reads a table from one sheet of a workbook. An empty sheet
// name selects the first sheet. The first row is the header.
func ReadXLSXFile(path, sheet string, opts ReadOptions) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %q: sheet %q is empty", Stem(path), sheet)
	}

	na := opts.NAValues
	if na == nil {
		na = DefaultNAValues
	}
	naSet := make(map[string]bool, len(na))
	for _, v := range na {
		naSet[v] = true
	}

	t := New(Stem(path), rows[0]...)
	for i, rec := range rows[1:] {
		// excelize trims trailing empty cells
		if len(rec) > len(t.Columns) {
			return nil, fmt.Errorf("table %q: row %d has %d cells, header has %d", t.Name, i+2, len(rec), len(t.Columns))
		}
		row := make([]Cell, len(t.Columns))
		for j := range row {
			if j < len(rec) && !naSet[rec[j]] {
				row[j] = String(rec[j])
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// WriteXLSXFile writes the table into a new workbook with a single sheet.
// Numeric cells are stored as numbers so they stay usable in spreadsheets.
func WriteXLSXFile(path, sheet string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for j, c := range row {
			switch {
			case !c.Valid:
				values[j] = nil
			case isPlainNumber(c.Value):
				v, _ := c.Float64()
				values[j] = v
			default:
				values[j] = c.Value
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// ReadFile dispatches on the file extension
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSXFile(path, "", opts)
	default:
		return ReadCSVFile(path, opts)
	}
}

// isPlainNumber rejects values such as provider ids with leading zeros,
// which must survive a round trip as text.
func isPlainNumber(s string) bool {
	if s == "" {
		return false
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return false
	}
	_, ok := String(s).Float64()
	return ok && strings.TrimSpace(s) == s
}
