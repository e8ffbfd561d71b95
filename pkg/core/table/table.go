// Package table holds the small row/column model shared by the scraper,
// the summarizer and the workbook writer.
package table

import (
	"strings"
)

// Table is a header row plus rows of string cells.
// Every row has exactly len(Header) cells.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// New creates a table and normalizes every row to the header width.
func New(header []string, rows [][]string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	for _, r := range rows {
		t.Rows = append(t.Rows, fitRow(r, len(header)))
	}
	return t
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.Header)
}

// Len returns the number of data rows (header excluded).
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the column with the given label, or -1.
func (t *Table) Column(label string) int {
	for i, h := range t.Header {
		if h == label {
			return i
		}
	}
	return -1
}

// RenameColumn replaces the header label at index i. Out of range is a no-op.
func (t *Table) RenameColumn(i int, label string) {
	if i < 0 || i >= len(t.Header) {
		return
	}
	t.Header[i] = label
}

// Select returns a new table with only the given columns, in the given
// order. Labels not present in the table are skipped.
func (t *Table) Select(labels ...string) *Table {
	var idx []int
	var header []string
	for _, l := range labels {
		if i := t.Column(l); i >= 0 {
			idx = append(idx, i)
			header = append(header, l)
		}
	}

	out := &Table{Header: header}
	for _, r := range t.Rows {
		row := make([]string, len(idx))
		for j, i := range idx {
			row[j] = r[i]
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// RowLabels returns the first cell of each row.
func (t *Table) RowLabels() []string {
	labels := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		if len(r) > 0 {
			labels = append(labels, r[0])
		}
	}
	return labels
}

// HasRow reports whether a row label matches, ignoring case and spacing.
func (t *Table) HasRow(label string) bool {
	want := foldLabel(label)
	for _, l := range t.RowLabels() {
		if foldLabel(l) == want {
			return true
		}
	}
	return false
}

func fitRow(r []string, width int) []string {
	row := make([]string, width)
	copy(row, r)
	return row
}

func foldLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
