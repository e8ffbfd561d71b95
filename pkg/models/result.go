package models

import (
	"time"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/table"
)

// Summary is one statement reduced by the LLM.
type Summary struct {
	Key   string       `json:"key"`   // e.g. "profit_loss"
	Table *table.Table `json:"table"` // first column holds the row labels
}

// CompanyResult is everything produced for one input company.
type CompanyResult struct {
	Company     string    `json:"company"`      // name as given in the input sheet
	MatchedName string    `json:"matched_name"` // first search result
	URL         string    `json:"url"`
	Summaries   []Summary `json:"summaries"`
	Fingerprint string    `json:"fingerprint"`
	RunID       string    `json:"run_id"`
	SavedAt     time.Time `json:"saved_at"`
}

// Tables returns the summary tables in order.
func (r *CompanyResult) Tables() []*table.Table {
	out := make([]*table.Table, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		out = append(out, s.Table)
	}
	return out
}
