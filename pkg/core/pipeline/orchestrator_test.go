package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/screener"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/summarize"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/table"
	"github.com/crsdvaibhav/neufin-assignment/pkg/models"
	"go.uber.org/zap"
)

// --- Mocks ---

type MockSite struct {
	ResolveFunc func(ctx context.Context, name string) (*screener.Company, error)
	FetchFunc   func(ctx context.Context, c *screener.Company) (*screener.Statements, error)
	resolved    atomic.Int32
}

func (m *MockSite) Resolve(ctx context.Context, name string) (*screener.Company, error) {
	m.resolved.Add(1)
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, name)
	}
	return &screener.Company{Name: name + " Ltd", URL: "/company/" + name + "/"}, nil
}

func (m *MockSite) FetchStatements(ctx context.Context, c *screener.Company) (*screener.Statements, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, c)
	}
	// the row label carries the company name so summarizer mocks can tell companies apart
	src := table.New([]string{"Type", "Mar 2023", "Mar 2024"}, [][]string{{c.Name, "1", "2"}})
	return &screener.Statements{
		Company: *c,
		URL:     c.URL,
		Items: []screener.Statement{
			{Key: "profit_loss", PromptID: "summary.profit_loss", Table: src},
			{Key: "balance_sheet", PromptID: "summary.balance_sheet", Table: src},
		},
	}, nil
}

type MockSummarizer struct {
	SummarizeFunc func(ctx context.Context, key, promptID string, t *table.Table) (*table.Table, error)
}

func (m *MockSummarizer) Summarize(ctx context.Context, key, promptID string, t *table.Table) (*table.Table, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, key, promptID, t)
	}
	return table.New([]string{"Type", "Mar 2023", "Mar 2024"}, [][]string{{key, "1", "2"}}), nil
}

type MockStore struct {
	mu      sync.Mutex
	saved   map[string]*models.CompanyResult
	SaveErr error
}

func (m *MockStore) Get(_ context.Context, company, fingerprint string) (*models.CompanyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[company+"|"+fingerprint], nil
}

func (m *MockStore) Save(_ context.Context, r *models.CompanyResult) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]*models.CompanyResult)
	}
	m.saved[r.Company+"|"+r.Fingerprint] = r
	return nil
}

// --- Tests ---

func TestRunHappyPath(t *testing.T) {
	store := &MockStore{}
	o := NewOrchestrator(&MockSite{}, &MockSummarizer{}, store, Options{Fingerprint: "fp", Logger: zap.NewNop()})

	report := o.Run(context.Background(), []string{"TCS", "Infosys"})

	if report.RunID == "" {
		t.Error("RunID not set")
	}
	if report.Succeeded() != 2 || len(report.Failures()) != 0 {
		t.Fatalf("succeeded=%d failures=%v", report.Succeeded(), report.Failures())
	}
	results := report.Results()
	if results[0].Company != "TCS" || results[1].Company != "Infosys" {
		t.Errorf("order = %s, %s", results[0].Company, results[1].Company)
	}
	if got := len(results[0].Summaries); got != 2 {
		t.Fatalf("summaries = %d, want 2", got)
	}
	if results[0].Summaries[0].Key != "profit_loss" || results[0].Summaries[1].Key != "balance_sheet" {
		t.Errorf("summary order = %+v", results[0].Summaries)
	}
	if results[0].RunID != report.RunID || results[0].MatchedName != "TCS Ltd" {
		t.Errorf("result metadata = %+v", results[0])
	}
	if len(store.saved) != 2 {
		t.Errorf("checkpoints = %d, want 2", len(store.saved))
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	site := &MockSite{
		ResolveFunc: func(_ context.Context, name string) (*screener.Company, error) {
			if name == "Nonexistent Widgets" {
				return nil, fmt.Errorf("%w: %q", screener.ErrCompanyNotFound, name)
			}
			return &screener.Company{Name: name, URL: "/company/" + name + "/"}, nil
		},
	}
	site.FetchFunc = func(ctx context.Context, c *screener.Company) (*screener.Statements, error) {
		if c.Name == "Delisted" {
			return nil, fmt.Errorf("%w: section #profit-loss", screener.ErrSectionMissing)
		}
		return (&MockSite{}).FetchStatements(ctx, c)
	}
	sum := &MockSummarizer{
		SummarizeFunc: func(_ context.Context, key, _ string, t *table.Table) (*table.Table, error) {
			if t.Rows[0][0] == "Garbled" {
				return nil, summarize.ErrMalformedResponse
			}
			return table.New([]string{"Type", "Mar 2024"}, [][]string{{key, "1"}}), nil
		},
	}

	tests := []struct {
		company   string
		stage     Stage
		wantErr   error
		summarize bool
	}{
		{"Nonexistent Widgets", StageResolve, screener.ErrCompanyNotFound, false},
		{"Delisted", StageScrape, screener.ErrSectionMissing, false},
		{"Garbled", StageSummarize, summarize.ErrMalformedResponse, true},
	}
	for _, tt := range tests {
		t.Run(tt.company, func(t *testing.T) {
			var s Summarizer = &MockSummarizer{}
			if tt.summarize {
				s = sum
			}
			o := NewOrchestrator(site, s, nil, Options{})
			report := o.Run(context.Background(), []string{"TCS", tt.company, "Infosys"})

			if report.Succeeded() != 2 {
				t.Errorf("succeeded = %d, want 2 (failure must not halt the batch)", report.Succeeded())
			}
			f, ok := report.FailureFor(tt.company)
			if !ok {
				t.Fatalf("no failure recorded for %s", tt.company)
			}
			if f.Stage != tt.stage {
				t.Errorf("stage = %s, want %s", f.Stage, tt.stage)
			}
			if !errors.Is(f, tt.wantErr) {
				t.Errorf("err = %v, want %v", f.Err, tt.wantErr)
			}
			if report.Outcomes[1].Status() != "failed" {
				t.Errorf("status = %s, want failed", report.Outcomes[1].Status())
			}
		})
	}
}

func TestRunCheckpointFailureKeepsResult(t *testing.T) {
	store := &MockStore{SaveErr: errors.New("disk full")}
	o := NewOrchestrator(&MockSite{}, &MockSummarizer{}, store, Options{})

	report := o.Run(context.Background(), []string{"TCS"})
	if report.Succeeded() != 1 {
		t.Fatalf("succeeded = %d, want 1", report.Succeeded())
	}
	out := report.Outcomes[0]
	if out.Failure == nil || out.Failure.Stage != StageCheckpoint {
		t.Errorf("failure = %+v, want checkpoint", out.Failure)
	}
	if out.Status() != "unsaved" {
		t.Errorf("status = %s, want unsaved", out.Status())
	}
}

func TestRunResume(t *testing.T) {
	store := &MockStore{}
	cached := &models.CompanyResult{Company: "TCS", Fingerprint: "fp", Summaries: []models.Summary{{Key: "profit_loss"}}}
	store.Save(context.Background(), cached)

	site := &MockSite{}
	o := NewOrchestrator(site, &MockSummarizer{}, store, Options{Resume: true, Fingerprint: "fp"})
	report := o.Run(context.Background(), []string{"TCS", "Infosys"})

	if !report.Outcomes[0].Resumed || report.Outcomes[0].Result != cached {
		t.Errorf("TCS outcome = %+v, want resumed from checkpoint", report.Outcomes[0])
	}
	if report.Outcomes[1].Resumed {
		t.Error("Infosys should not be resumed")
	}
	if got := site.resolved.Load(); got != 1 {
		t.Errorf("Resolve called %d times, want 1", got)
	}

	// a changed fingerprint invalidates the checkpoint
	o = NewOrchestrator(site, &MockSummarizer{}, store, Options{Resume: true, Fingerprint: "other"})
	if report := o.Run(context.Background(), []string{"TCS"}); report.Outcomes[0].Resumed {
		t.Error("resumed with a stale fingerprint")
	}
}

func TestRunWorkersKeepInputOrder(t *testing.T) {
	var inflight, peak atomic.Int32
	sum := &MockSummarizer{
		SummarizeFunc: func(_ context.Context, key, _ string, _ *table.Table) (*table.Table, error) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inflight.Add(-1)
			return table.New([]string{"Type", "Mar 2024"}, [][]string{{key, "1"}}), nil
		},
	}

	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("Company %02d", i)
	}
	o := NewOrchestrator(&MockSite{}, sum, nil, Options{Workers: 4})
	report := o.Run(context.Background(), names)

	for i, out := range report.Outcomes {
		if out.Company != names[i] || out.Result == nil || out.Result.Company != names[i] {
			t.Fatalf("outcome %d = %+v, want %s", i, out, names[i])
		}
	}
	if p := peak.Load(); p > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", p)
	}
}

func TestRunCompanyTimeout(t *testing.T) {
	sum := &MockSummarizer{
		SummarizeFunc: func(ctx context.Context, _, _ string, _ *table.Table) (*table.Table, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := NewOrchestrator(&MockSite{}, sum, nil, Options{CompanyTimeout: 20 * time.Millisecond})
	report := o.Run(context.Background(), []string{"Slow Co"})

	f, ok := report.FailureFor("Slow Co")
	if !ok || !errors.Is(f, context.DeadlineExceeded) {
		t.Errorf("failure = %v, want deadline exceeded", f)
	}
}

func TestRunCancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(&MockSite{}, &MockSummarizer{}, nil, Options{})
	report := o.Run(ctx, []string{"A", "B", "C"})

	if len(report.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(report.Outcomes))
	}
	for _, out := range report.Outcomes {
		if out.Result == nil && (out.Failure == nil || (out.Failure.Stage != StageSkipped && !errors.Is(out.Failure, context.Canceled))) {
			t.Errorf("outcome %s = %+v, want skipped or cancelled", out.Company, out.Failure)
		}
	}
}

func TestFailureError(t *testing.T) {
	f := &Failure{Company: "TCS", Stage: StageScrape, Err: screener.ErrSectionMissing}
	if !strings.Contains(f.Error(), "TCS: scrape:") {
		t.Errorf("Error() = %q", f.Error())
	}
	if !errors.Is(f, screener.ErrSectionMissing) {
		t.Error("Failure does not unwrap")
	}
}
