package screener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/cache"
	"go.uber.org/zap"
)

// ErrCompanyNotFound is returned when the search API has no match.
var ErrCompanyNotFound = errors.New("company not found")

// Company is one search API result.
type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Resolve maps a company name to its page. The first search result is taken
// as is; there is no disambiguation.
func (c *Client) Resolve(ctx context.Context, name string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrCompanyNotFound)
	}

	// a miss is returned as an error so it is never cached
	results, err := cache.Memoize(ctx, c.cache, "search:"+strings.ToLower(name), c.cacheTTL, func() ([]Company, error) {
		results, err := c.search(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 || results[0].URL == "" {
			return nil, fmt.Errorf("%w: %q", ErrCompanyNotFound, name)
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}

	company := results[0]
	c.logger.Debug("resolved company",
		zap.String("company", name),
		zap.String("match", company.Name),
		zap.String("url", company.URL),
	)
	return &company, nil
}

func (c *Client) search(ctx context.Context, name string) ([]Company, error) {
	target, err := c.resolve(c.site.SearchPath)
	if err != nil {
		return nil, err
	}
	target += "?" + url.Values{"q": {name}}.Encode()

	body, err := c.get(ctx, target, "application/json")
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var results []Company
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return results, nil
}
