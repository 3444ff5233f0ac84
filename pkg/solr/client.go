// Package solr provides a minimal client for the Solr JSON query API,
// covering the select and ping operations the sync verifier needs.
package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/jobsnprofiles/synccheck/internal/resilience"
)

// Client defines the Solr operations the verifier needs.
type Client interface {
	// Select runs a query against the core and returns matching documents.
	Select(ctx context.Context, query string, opts ...SelectOption) (*SelectResponse, error)
	// Ping checks core health through the admin ping handler.
	Ping(ctx context.Context) error
}

// SelectResponse is the parsed Solr select response.
type SelectResponse struct {
	ResponseHeader ResponseHeader `json:"responseHeader"`
	Response       ResponseBody   `json:"response"`
}

// ResponseHeader carries Solr's per-request status.
type ResponseHeader struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

// ResponseBody holds the matching documents.
type ResponseBody struct {
	NumFound int64      `json:"numFound"`
	Start    int64      `json:"start"`
	Docs     []Document `json:"docs"`
}

// SelectOption tunes one select request.
type SelectOption func(*selectOpts)

type selectOpts struct {
	fields []string
	rows   int
	start  int
}

// WithFields projects the response onto the named fields.
func WithFields(fields ...string) SelectOption {
	return func(o *selectOpts) {
		o.fields = fields
	}
}

// WithRows caps the number of returned documents.
func WithRows(n int) SelectOption {
	return func(o *selectOpts) {
		o.rows = n
	}
}

// WithStart offsets into the result set.
func WithStart(n int) SelectOption {
	return func(o *selectOpts) {
		o.start = n
	}
}

// Option configures the Solr client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second with the given burst.
// Zero or negative rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL string
	core    string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Solr client for one core. baseURL points at the Solr
// root, e.g. "http://localhost:8983/solr".
func NewClient(baseURL, core string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		core:    core,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Select(ctx context.Context, query string, opts ...SelectOption) (*SelectResponse, error) {
	so := &selectOpts{rows: 10}
	for _, opt := range opts {
		opt(so)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("wt", "json")
	params.Set("rows", strconv.Itoa(so.rows))
	if so.start > 0 {
		params.Set("start", strconv.Itoa(so.start))
	}
	if len(so.fields) > 0 {
		params.Set("fl", strings.Join(so.fields, ","))
	}

	reqURL := fmt.Sprintf("%s/%s/select?%s", c.baseURL, url.PathEscape(c.core), params.Encode())

	body, err := c.get(ctx, "select", reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "solr: select")
	}

	var result SelectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "solr: unmarshal select response")
	}
	return &result, nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/%s/admin/ping?wt=json", c.baseURL, url.PathEscape(c.core))

	body, err := c.get(ctx, "ping", reqURL)
	if err != nil {
		return eris.Wrap(err, "solr: ping")
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return eris.Wrap(err, "solr: unmarshal ping response")
	}
	if result.Status != "OK" {
		return eris.Errorf("solr: ping status %q", result.Status)
	}
	return nil
}

// get performs one rate-limited GET with retries on transient failures
// (429, 5xx, network errors). Non-2xx permanent statuses fail immediately.
func (c *httpClient) get(ctx context.Context, op, reqURL string) ([]byte, error) {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("solr", op)
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "solr: rate limiter")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "solr: create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, eris.Wrap(readErr, "solr: read response body")
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("solr: status %d: %s", resp.StatusCode, truncateBody(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}
		return body, nil
	})
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
