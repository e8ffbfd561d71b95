// Package summarize reduces scraped statement tables to a few labelled rows
// with an LLM and parses the answer back into a table.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/llm"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/prompt"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/table"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/utils"
	"go.uber.org/zap"
)

var (
	// ErrMalformedResponse wraps the last parse error once every attempt is used.
	ErrMalformedResponse = errors.New("malformed llm response")
	// ErrUnexpectedShape means the answer parsed but lacks required rows.
	ErrUnexpectedShape = errors.New("unexpected table shape")
)

type Options struct {
	Provider    llm.Provider
	Prompts     *prompt.Registry
	Model       string
	Temperature float64
	MaxAttempts int
	Logger      *zap.Logger
}

type Summarizer struct {
	provider    llm.Provider
	prompts     *prompt.Registry
	model       string
	temperature float64
	maxAttempts int
	logger      *zap.Logger
}

func New(opts Options) *Summarizer {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Prompts == nil {
		opts.Prompts = prompt.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Summarizer{
		provider:    opts.Provider,
		prompts:     opts.Prompts,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
	}
}

// Summarize renders promptID around t, asks the provider and parses the
// answer. Unparseable answers are retried up to MaxAttempts; provider errors
// are returned immediately.
func (s *Summarizer) Summarize(ctx context.Context, key, promptID string, t *table.Table) (*table.Table, error) {
	pt, err := s.prompts.GetPrompt(promptID)
	if err != nil {
		return nil, err
	}

	vars := prompt.NewContext().
		Set("Key", key).
		Set("Table", t.Markdown()).
		Set("Label", firstHeader(t)).
		Set("PeriodList", periodList(t)).
		Set("Periods", periods(t))
	userPrompt, err := prompt.RenderUserPrompt(pt, vars)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", promptID, err)
	}

	options := map[string]interface{}{
		llm.OptTemperature: s.temperature,
	}
	if s.model != "" {
		options[llm.OptModel] = s.model
	}
	systemPrompt := s.provider.AdaptInstructions(pt.SystemPrompt)

	var lastErr error
	request := userPrompt
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err := s.provider.GenerateResponse(ctx, request, systemPrompt, options)
		if err != nil {
			return nil, fmt.Errorf("llm call for %s: %w", key, err)
		}

		out, err := ParseResponse(resp, pt.ResponseFormat(), pt.ExpectedRows)
		if err == nil {
			return out, nil
		}

		lastErr = err
		s.logger.Warn("unusable llm answer",
			zap.String("stage", "summarize"),
			zap.String("statement", key),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		request = userPrompt + "\n\nYour previous answer could not be used (" + err.Error() +
			"). Reply with the " + pt.ResponseFormat() + " only."
	}
	return nil, fmt.Errorf("%w: %s after %d attempt(s): %w", ErrMalformedResponse, key, s.maxAttempts, lastErr)
}

// ParseResponse cleans an LLM answer and decodes it in the given format.
// Every expected row label must be present.
func ParseResponse(resp, format string, expectedRows []string) (*table.Table, error) {
	cleaned := utils.CleanResponse(resp)

	var (
		out *table.Table
		err error
	)
	switch format {
	case prompt.FormatJSON:
		out, err = parseJSON(cleaned)
	case prompt.FormatCSV, "":
		out, err = table.ParseCSV(cleaned)
	default:
		return nil, fmt.Errorf("unsupported response format %q", format)
	}
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, label := range expectedRows {
		if !out.HasRow(label) {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing rows %q", ErrUnexpectedShape, missing)
	}
	return out, nil
}

func parseJSON(text string) (*table.Table, error) {
	var payload struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}
	if _, err := utils.SmartParse(text, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if len(payload.Header) < 2 || len(payload.Rows) == 0 {
		return nil, fmt.Errorf("%w: header has %d column(s), %d row(s)", ErrUnexpectedShape, len(payload.Header), len(payload.Rows))
	}
	for i, r := range payload.Rows {
		if len(r) != len(payload.Header) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrUnexpectedShape, i, len(r), len(payload.Header))
		}
	}
	return table.New(payload.Header, payload.Rows), nil
}

func firstHeader(t *table.Table) string {
	if t.Width() == 0 {
		return ""
	}
	return t.Header[0]
}

func periods(t *table.Table) []string {
	if t.Width() < 2 {
		return nil
	}
	return t.Header[1:]
}

// periodList renders "Mar 2023 and Mar 2024" or "A, B and C".
func periodList(t *table.Table) string {
	p := periods(t)
	switch len(p) {
	case 0:
		return ""
	case 1:
		return p[0]
	}
	return strings.Join(p[:len(p)-1], ", ") + " and " + p[len(p)-1]
}
