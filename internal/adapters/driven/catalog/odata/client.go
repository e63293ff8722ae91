package odata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.Catalog = (*Client)(nil)

const (
	maxBodyBytes  = 10 << 20
	maxErrorBytes = 4 << 10
)

// Client searches the OData Products endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRateLimiter sets the request limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// NewClient creates a client for the Products endpoint at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &domain.InvalidArgumentError{Arg: "catalog.url", Reason: fmt.Sprintf("invalid URL %q", baseURL)}
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    NewRateLimiter(0, 1),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search runs one query. Failures are *domain.CatalogError, except a canceled
// or expired ctx while waiting for the rate limiter, which is returned as is.
func (c *Client) Search(ctx context.Context, accessToken string, q domain.CatalogQuery) ([]domain.CatalogEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL, err := c.queryURL(q)
	if err != nil {
		return nil, &domain.CatalogError{Message: "build query", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &domain.CatalogError{Message: "create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.CatalogError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		if resp.StatusCode == http.StatusTooManyRequests {
			wait := parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
			c.limiter.RecordRateLimit(wait)
			logger.Warn("catalogue rate limited, backing off until %s", c.limiter.RetryAt().UTC().Format(time.RFC3339))
		}
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &domain.CatalogError{Status: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.CatalogError{Status: resp.StatusCode, Message: "read response", Err: err}
	}

	entries, err := mapResponse(body)
	if err != nil {
		return nil, &domain.CatalogError{Status: resp.StatusCode, Message: "malformed response: " + err.Error(), Err: err}
	}
	return entries, nil
}

// queryURL adds the OData query options to the base URL.
func (c *Client) queryURL(q domain.CatalogQuery) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	v := u.Query()
	v.Set("$filter", Filter(q))
	v.Set("$orderby", "ContentDate/Start desc")
	if q.Top > 0 {
		v.Set("$top", strconv.Itoa(q.Top))
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// Filter renders the OData $filter for q. Products overlapping the window
// are selected, so orbits crossing midnight appear on both days.
func Filter(q domain.CatalogQuery) string {
	var parts []string
	if q.Collection != "" {
		parts = append(parts, fmt.Sprintf("Collection/Name eq %s", quote(q.Collection)))
	}
	if q.ProductType != "" {
		parts = append(parts, fmt.Sprintf(
			"Attributes/OData.CSC.StringAttribute/any(att:att/Name eq 'productType' and att/OData.CSC.StringAttribute/Value eq %s)",
			quote(q.ProductType)))
	}
	parts = append(parts,
		"ContentDate/Start le "+q.Window.EndString(),
		"ContentDate/End ge "+q.Window.StartString(),
	)
	return strings.Join(parts, " and ")
}

// quote renders an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
