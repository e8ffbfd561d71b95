// Package screener talks to screener.in: session login, company search and
// statement table scraping.
package screener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/cache"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/config"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const acceptEncoding = "gzip, deflate, br, zstd"

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client.
type Options struct {
	Site     config.SiteConfig
	Scraper  config.ScraperConfig
	Cache    *cache.Cache
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// Client holds one authenticated session. It is safe for concurrent use
// once Login has returned.
type Client struct {
	base       *url.URL
	site       config.SiteConfig
	scraper    config.ScraperConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewClient creates a client with its own cookie jar.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.Site.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.Site.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := opts.Site.RequestTimeout.Std()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if opts.Site.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.Site.RequestsPerSecond)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:    base,
		site:    opts.Site,
		scraper: opts.Scraper,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		limiter:  rate.NewLimiter(limit, 1),
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   logger,
	}, nil
}

// resolve turns a site-relative path (or absolute URL) into an absolute URL.
func (c *Client) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	return c.base.ResolveReference(u).String(), nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Status)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.site.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return req, nil
}

// do waits for the rate limiter, sends req and returns the decoded body.
// The status code is returned even when it is not 2xx.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return 0, nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	body, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	c.logger.Debug("http",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.StatusCode, body, nil
}

// get fetches target and fails on non-2xx.
func (c *Client) get(ctx context.Context, target, accept string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{URL: target, Status: status}
	}
	return body, nil
}
