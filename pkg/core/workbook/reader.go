// Package workbook reads the input company list and writes the output
// spreadsheet, one sheet per company.
package workbook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/table"
	"github.com/xuri/excelize/v2"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrNoCompanies    = errors.New("no companies in input")
)

// ReadCompanies returns the non-blank cells under the header named column
// (matched case-insensitively) of sheet, or of the first sheet when sheet is
// empty. Repeated names are dropped, keeping the first occurrence.
func ReadCompanies(path, sheet, column string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrNoCompanies, sheet)
	}

	col := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(column)) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: %q in sheet %q (header %q)", ErrColumnNotFound, column, sheet, rows[0])
	}

	seen := make(map[string]bool)
	var names []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		name := table.CleanText(row[col])
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: column %q has no values", ErrNoCompanies, column)
	}
	return names, nil
}

// ReadTable reads back a table whose header sits on startRow (1-based). The
// table ends at the first blank row.
func ReadTable(path, sheet string, startRow int) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if startRow < 1 || startRow > len(rows) || isBlank(rows[startRow-1]) {
		return nil, fmt.Errorf("no table at row %d of %q", startRow, sheet)
	}

	header := rows[startRow-1]
	var data [][]string
	for _, r := range rows[startRow:] {
		if isBlank(r) {
			break
		}
		data = append(data, r)
	}
	return table.New(header, data), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
