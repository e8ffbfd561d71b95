// Package report turns a pipeline run into workbook input and a JSON run
// report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/pipeline"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/workbook"
	"github.com/tidwall/pretty"
)

type Counts struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Resumed   int `json:"resumed"`
	Failed    int `json:"failed"`
}

type CompanyStatus struct {
	Company   string `json:"company"`
	Sheet     string `json:"sheet,omitempty"`
	Matched   string `json:"matched,omitempty"`
	Status    string `json:"status"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type Document struct {
	RunID     string          `json:"run_id"`
	Started   time.Time       `json:"started"`
	Finished  time.Time       `json:"finished"`
	Workbook  string          `json:"workbook"`
	Counts    Counts          `json:"counts"`
	Companies []CompanyStatus `json:"companies"`
}

// Sheets returns the workbook sheets for every company with a result, in
// input order.
func Sheets(r *pipeline.Report) []workbook.Sheet {
	var out []workbook.Sheet
	for _, res := range r.Results() {
		out = append(out, workbook.Sheet{Company: res.Company, Tables: res.Tables()})
	}
	return out
}

// StatusRows builds the workbook summary sheet, one row per input company.
func StatusRows(r *pipeline.Report) []workbook.StatusRow {
	rows := make([]workbook.StatusRow, 0, len(r.Outcomes))
	for _, c := range companies(r, nil) {
		rows = append(rows, workbook.StatusRow{
			Company: c.Company,
			Matched: c.Matched,
			Status:  c.Status,
			Stage:   c.Stage,
			Error:   c.Error,
		})
	}
	return rows
}

// Build assembles the run report. written maps companies to their sheets.
func Build(r *pipeline.Report, written workbook.Written, workbookPath string) *Document {
	doc := &Document{
		RunID:     r.RunID,
		Started:   r.Started,
		Finished:  r.Finished,
		Workbook:  workbookPath,
		Companies: companies(r, written),
	}
	doc.Counts.Total = len(r.Outcomes)
	for _, o := range r.Outcomes {
		switch {
		case o.Result == nil:
			doc.Counts.Failed++
		case o.Resumed:
			doc.Counts.Resumed++
			doc.Counts.Succeeded++
		default:
			doc.Counts.Succeeded++
		}
	}
	return doc
}

func companies(r *pipeline.Report, written workbook.Written) []CompanyStatus {
	out := make([]CompanyStatus, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		cs := CompanyStatus{
			Company:   o.Company,
			Sheet:     written[o.Company],
			Status:    o.Status(),
			ElapsedMS: o.Elapsed.Milliseconds(),
		}
		if o.Result != nil {
			cs.Matched = o.Result.MatchedName
		}
		if o.Failure != nil {
			cs.Stage = string(o.Failure.Stage)
			if o.Failure.Err != nil {
				cs.Error = o.Failure.Err.Error()
			}
		}
		out = append(out, cs)
	}
	return out
}

// Write stores doc as indented JSON.
func Write(path string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, pretty.Pretty(data), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
