package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedCSV is returned when CSV text cannot be turned into a table.
var ErrMalformedCSV = errors.New("malformed csv")

// ParseCSV builds a table from CSV text. The first record is the header.
// At least two columns and one data row are required and every record
// must have the header's width.
func ParseCSV(text string) (*Table, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "\ufeff")
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedCSV)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrMalformedCSV)
	}

	header := trimAll(records[0])
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: header has %d column(s)", ErrMalformedCSV, len(header))
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedCSV)
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, trimAll(rec))
	}
	return New(header, rows), nil
}

// CSV renders the table back to CSV text.
func (t *Table) CSV() string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(t.Header)
	_ = w.WriteAll(t.Rows)
	return sb.String()
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, c := range rec {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
