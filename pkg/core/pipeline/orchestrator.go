// Package pipeline drives a run: resolve, scrape, summarize and checkpoint
// every input company, isolating failures per company.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/screener"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/table"
	"github.com/crsdvaibhav/neufin-assignment/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Site resolves companies and scrapes their statement tables.
// Implemented by *screener.Client.
type Site interface {
	Resolve(ctx context.Context, name string) (*screener.Company, error)
	FetchStatements(ctx context.Context, company *screener.Company) (*screener.Statements, error)
}

// Summarizer reduces one statement table. Implemented by *summarize.Summarizer.
type Summarizer interface {
	Summarize(ctx context.Context, key, promptID string, t *table.Table) (*table.Table, error)
}

// Checkpointer persists finished companies. Implemented by *store.ResultStore.
type Checkpointer interface {
	Get(ctx context.Context, company, fingerprint string) (*models.CompanyResult, error)
	Save(ctx context.Context, r *models.CompanyResult) error
}

type Options struct {
	Workers        int           // concurrent companies; 1 is sequential
	CompanyTimeout time.Duration // 0 disables the per-company deadline
	Resume         bool          // reuse checkpoints with a matching fingerprint
	Fingerprint    string
	Logger         *zap.Logger
}

// Orchestrator manages the end-to-end flow for a list of companies.
type Orchestrator struct {
	site       Site
	summarizer Summarizer
	store      Checkpointer
	opts       Options
	logger     *zap.Logger
}

// NewOrchestrator wires the run. store may be nil.
func NewOrchestrator(site Site, summarizer Summarizer, store Checkpointer, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		site:       site,
		summarizer: summarizer,
		store:      store,
		opts:       opts,
		logger:     logger,
	}
}

// Run processes every company and always returns a report; per-company
// errors are recorded, never returned. Outcomes keep the input order.
// Cancelling ctx stops scheduling; companies not started are marked skipped.
func (o *Orchestrator) Run(ctx context.Context, companies []string) *Report {
	report := &Report{
		RunID:    uuid.NewString(),
		Started:  time.Now().UTC(),
		Outcomes: make([]Outcome, len(companies)),
	}
	logger := o.logger.With(zap.String("run_id", report.RunID))
	logger.Info("run started", zap.Int("companies", len(companies)), zap.Int("workers", o.opts.Workers))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Outcomes[i] = o.processCompany(ctx, logger, report.RunID, companies[i])
			}
		}()
	}

	next := 0
schedule:
	for ; next < len(companies); next++ {
		select {
		case <-ctx.Done():
			break schedule
		case jobs <- next:
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(companies); i++ {
		report.Outcomes[i] = Outcome{
			Company: companies[i],
			Failure: &Failure{Company: companies[i], Stage: StageSkipped, Err: ctx.Err()},
		}
	}

	report.Finished = time.Now().UTC()
	logger.Info("run finished",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", len(report.Failures())),
		zap.Duration("elapsed", report.Finished.Sub(report.Started)),
	)
	return report
}

func (o *Orchestrator) processCompany(ctx context.Context, logger *zap.Logger, runID, name string) Outcome {
	start := time.Now()
	logger = logger.With(zap.String("company", name))

	if o.opts.CompanyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.CompanyTimeout)
		defer cancel()
	}

	out := Outcome{Company: name}
	fail := func(stage Stage, err error) Outcome {
		out.Failure = &Failure{Company: name, Stage: stage, Err: err}
		out.Elapsed = time.Since(start)
		logger.Warn("company failed", zap.String("stage", string(stage)), zap.Error(err))
		return out
	}

	// 0. Resume from checkpoint
	if o.opts.Resume && o.store != nil {
		cached, err := o.store.Get(ctx, name, o.opts.Fingerprint)
		if err != nil {
			logger.Warn("checkpoint read failed", zap.String("stage", string(StageCheckpoint)), zap.Error(err))
		} else if cached != nil {
			logger.Info("resumed from checkpoint")
			out.Result = cached
			out.Resumed = true
			out.Elapsed = time.Since(start)
			return out
		}
	}

	// 1. Resolve
	company, err := o.site.Resolve(ctx, name)
	if err != nil {
		return fail(StageResolve, err)
	}

	// 2. Scrape
	statements, err := o.site.FetchStatements(ctx, company)
	if err != nil {
		return fail(StageScrape, err)
	}

	// 3. Summarize every statement, in page order
	result := &models.CompanyResult{
		Company:     name,
		MatchedName: company.Name,
		URL:         statements.URL,
		Fingerprint: o.opts.Fingerprint,
		RunID:       runID,
	}
	for _, st := range statements.Items {
		summary, err := o.summarizer.Summarize(ctx, st.Key, st.PromptID, st.Table)
		if err != nil {
			return fail(StageSummarize, fmt.Errorf("%s: %w", st.Key, err))
		}
		result.Summaries = append(result.Summaries, models.Summary{Key: st.Key, Table: summary})
	}
	out.Result = result

	// 4. Checkpoint; a failed save keeps the result
	if o.store != nil {
		if err := o.store.Save(ctx, result); err != nil {
			out.Failure = &Failure{Company: name, Stage: StageCheckpoint, Err: err}
			logger.Warn("checkpoint save failed", zap.String("stage", string(StageCheckpoint)), zap.Error(err))
		}
	}

	out.Elapsed = time.Since(start)
	logger.Info("company done", zap.String("match", company.Name), zap.Duration("elapsed", out.Elapsed))
	return out
}

// =============================================================================
// REPORT
// =============================================================================

type Stage string

const (
	StageResolve    Stage = "resolve"
	StageScrape     Stage = "scrape"
	StageSummarize  Stage = "summarize"
	StageCheckpoint Stage = "checkpoint"
	StageSkipped    Stage = "skipped"
)

// Failure records why a company did not complete.
type Failure struct {
	Company string
	Stage   Stage
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Company, f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is the per-company entry of a Report.
type Outcome struct {
	Company string
	Result  *models.CompanyResult // nil when the company failed
	Failure *Failure              // set on failure, or on a checkpoint error alongside a Result
	Resumed bool
	Elapsed time.Duration
}

// Status is one of ok, resumed, unsaved (result kept, checkpoint failed) or failed.
func (o Outcome) Status() string {
	switch {
	case o.Result == nil:
		return "failed"
	case o.Resumed:
		return "resumed"
	case o.Failure != nil:
		return "unsaved"
	}
	return "ok"
}

type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

// Results returns every company that produced tables, in input order.
func (r *Report) Results() []*models.CompanyResult {
	var out []*models.CompanyResult
	for _, o := range r.Outcomes {
		if o.Result != nil {
			out = append(out, o.Result)
		}
	}
	return out
}

// Failures returns every recorded failure, in input order.
func (r *Report) Failures() []Failure {
	var out []Failure
	for _, o := range r.Outcomes {
		if o.Failure != nil {
			out = append(out, *o.Failure)
		}
	}
	return out
}

// Succeeded counts companies with a result.
func (r *Report) Succeeded() int {
	return len(r.Results())
}

// FailureFor returns the failure recorded for company, if any.
func (r *Report) FailureFor(company string) (*Failure, bool) {
	for _, o := range r.Outcomes {
		if o.Company == company && o.Failure != nil {
			f := *o.Failure
			return &f, true
		}
	}
	return nil, false
}
