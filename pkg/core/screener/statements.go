package screener

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/cache"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/config"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/table"
	"go.uber.org/zap"
)

var (
	// ErrSectionMissing means the page has no such section or no table in it.
	ErrSectionMissing = errors.New("statement section missing")
	// ErrPeriodsMissing means none of the requested periods are columns of the table.
	ErrPeriodsMissing = errors.New("requested periods missing")
)

// Statement is one scraped table, already filtered to the label column and
// the requested periods.
type Statement struct {
	Key      string       `json:"key"`
	PromptID string       `json:"prompt_id"`
	Table    *table.Table `json:"table"`
}

// Statements holds a company's tables in configuration order.
type Statements struct {
	Company Company     `json:"company"`
	URL     string      `json:"url"`
	Items   []Statement `json:"items"`
}

// FetchStatements downloads the company page and extracts every configured
// statement table.
func (c *Client) FetchStatements(ctx context.Context, company *Company) (*Statements, error) {
	pageURL, err := c.resolve(company.URL)
	if err != nil {
		return nil, err
	}

	page, err := cache.Memoize(ctx, c.cache, "page:"+pageURL, c.cacheTTL, func() (string, error) {
		body, err := c.get(ctx, pageURL, "text/html")
		return string(body), err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company page: %w", err)
	}

	items, err := ExtractStatements(page, c.scraper)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("scraped statements",
		zap.String("company", company.Name),
		zap.String("url", pageURL),
		zap.Int("tables", len(items)),
	)
	return &Statements{Company: *company, URL: pageURL, Items: items}, nil
}

// ExtractStatements parses a company page and returns the configured tables.
func ExtractStatements(page string, cfg config.ScraperConfig) ([]Statement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse company page: %w", err)
	}

	items := make([]Statement, 0, len(cfg.Sections))
	for _, sec := range cfg.Sections {
		t, err := extractSection(doc, sec, cfg)
		if err != nil {
			return nil, err
		}
		items = append(items, Statement{Key: sec.Key, PromptID: sec.PromptID, Table: t})
	}
	return items, nil
}

func extractSection(doc *goquery.Document, sec config.Section, cfg config.ScraperConfig) (*table.Table, error) {
	section := doc.Find("section#" + sec.SectionID)
	if section.Length() == 0 {
		return nil, fmt.Errorf("%w: section #%s", ErrSectionMissing, sec.SectionID)
	}

	selector := "table"
	if sec.TableClass != "" {
		selector += "." + sec.TableClass
	}
	node := section.Find(selector).First()
	if node.Length() == 0 {
		return nil, fmt.Errorf("%w: no %s in #%s", ErrSectionMissing, selector, sec.SectionID)
	}

	full := table.FromHTML(node)
	if full.Width() == 0 {
		return nil, fmt.Errorf("%w: empty table in #%s", ErrSectionMissing, sec.SectionID)
	}

	label := cfg.FirstColumnLabel
	if label == "" {
		label = "Type"
	}
	full.RenameColumn(0, label)

	periods := cfg.Periods
	if len(periods) == 0 {
		periods = LatestPeriods(full.Header[1:], cfg.LatestPeriods)
	}

	filtered := full.Select(append([]string{label}, periods...)...)
	if filtered.Width() < 2 {
		return nil, fmt.Errorf("%w: want %q in #%s, have %q", ErrPeriodsMissing, periods, sec.SectionID, full.Header[1:])
	}
	return filtered, nil
}

// LatestPeriods returns the last n period labels, skipping blanks and the
// trailing-twelve-months column.
func LatestPeriods(headers []string, n int) []string {
	var periods []string
	for _, h := range headers {
		if h == "" || strings.EqualFold(h, "TTM") {
			continue
		}
		periods = append(periods, h)
	}
	if n > 0 && len(periods) > n {
		periods = periods[len(periods)-n:]
	}
	return periods
}
