package workbook

import (
	"fmt"
	"strings"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/table"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// FirstTableRow is the 1-based row of the first table's header; row 1 holds
// the title and row 2 stays blank.
const FirstTableRow = 3

// Sheet is one company's output.
type Sheet struct {
	Company string
	Tables  []*table.Table
}

// StatusRow is one line of the summary sheet. An empty Sheet is filled in
// with the sheet the company was written to.
type StatusRow struct {
	Company string
	Sheet   string
	Matched string
	Status  string
	Stage   string
	Error   string
}

// Written maps company names to the sheet they were written to.
type Written map[string]string

// Layout returns the header row of every table: the first at FirstTableRow,
// each next one after a single blank row.
func Layout(tables []*table.Table) []int {
	rows := make([]int, len(tables))
	r := FirstTableRow
	for i, t := range tables {
		rows[i] = r
		r += t.Len() + 2
	}
	return rows
}

// Write creates the workbook at path. Each sheet gets its tables stacked
// vertically and A1 set to "<company> <titleSuffix>". A summary sheet is
// appended when status is non-empty.
func Write(path string, sheets []Sheet, status []StatusRow, titleSuffix string) (Written, error) {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	namer := NewSheetNamer()
	written := make(Written, len(sheets))
	first := true
	newSheet := func(name string) error {
		// the default sheet is renamed rather than deleted
		if first {
			first = false
			return f.SetSheetName(f.GetSheetName(0), name)
		}
		_, err := f.NewSheet(name)
		return err
	}

	// Pass 1: tables
	for _, s := range sheets {
		name := namer.Name(s.Company)
		if err := newSheet(name); err != nil {
			return nil, fmt.Errorf("sheet for %s: %w", s.Company, err)
		}
		for i, row := range Layout(s.Tables) {
			if err := writeTable(f, name, row, s.Tables[i], bold); err != nil {
				return nil, fmt.Errorf("sheet %s: %w", name, err)
			}
		}
		written[s.Company] = name
	}

	// Pass 2: titles
	for _, s := range sheets {
		name := written[s.Company]
		if err := f.SetCellValue(name, "A1", Title(s.Company, titleSuffix)); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(name, "A1", "A1", bold); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(name, "A", "A", 28); err != nil {
			return nil, err
		}
	}

	if len(status) > 0 {
		if err := newSheet(SummarySheet); err != nil {
			return nil, err
		}
		if err := writeStatus(f, status, written, bold); err != nil {
			return nil, err
		}
	}
	if first {
		return nil, fmt.Errorf("nothing to write")
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", path, err)
	}
	return written, nil
}

// Title is the A1 text of a company sheet.
func Title(company, suffix string) string {
	if suffix == "" {
		return company
	}
	return company + " " + suffix
}

func writeTable(f *excelize.File, sheet string, row int, t *table.Table, headerStyle int) error {
	if err := writeRow(f, sheet, row, t.Header); err != nil {
		return err
	}
	if t.Width() > 0 {
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(t.Width(), row)
		if err := f.SetCellStyle(sheet, start, end, headerStyle); err != nil {
			return err
		}
	}
	for i, r := range t.Rows {
		if err := writeRow(f, sheet, row+1+i, r); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []string) error {
	for j, c := range cells {
		axis, err := excelize.CoordinatesToCellName(j+1, row)
		if err != nil {
			return err
		}
		if d, ok := plainDecimal(c); ok {
			err = f.SetCellFloat(sheet, axis, d.InexactFloat64(), -1, 64)
		} else {
			err = f.SetCellStr(sheet, axis, c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// plainDecimal accepts cells whose normalized value prints back as the same
// text ("1200", "-3.5"), so the written number reads back unchanged.
// Display forms such as "1,200" or "(12)" stay text.
func plainDecimal(s string) (decimal.Decimal, bool) {
	d, ok := table.Decimal(s)
	if !ok || d.String() != s || len(strings.ReplaceAll(strings.TrimPrefix(s, "-"), ".", "")) > 15 {
		return decimal.Zero, false
	}
	return d, true
}

func writeStatus(f *excelize.File, rows []StatusRow, written Written, bold int) error {
	header := []string{"Company", "Sheet", "Matched", "Status", "Stage", "Error"}
	if err := writeRow(f, SummarySheet, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "F1", bold); err != nil {
		return err
	}
	for i, r := range rows {
		if r.Sheet == "" {
			r.Sheet = written[r.Company]
		}
		cells := []string{r.Company, r.Sheet, r.Matched, r.Status, r.Stage, r.Error}
		for j, c := range cells {
			axis, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellStr(SummarySheet, axis, c); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(SummarySheet, "A", "F", 24)
}
