// Package upstream performs the outbound HTTP GETs of the service. Every
// call runs through the dependency's resilience pipeline and is traced,
// counted and logged by the observe middleware.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/pokedex/observe"
	"github.com/jonwraymond/pokedex/resilience"
)

// DefaultMaxBodyBytes bounds how much of a response body is read.
const DefaultMaxBodyBytes = 1 << 20

// ErrInvalidBaseURL is returned by New for an unusable base URL.
var ErrInvalidBaseURL = errors.New("upstream: invalid base URL")

// Config describes one outbound dependency.
type Config struct {
	// Name labels telemetry and the breaker, e.g. "metadata".
	Name    string
	BaseURL string
	// Headers are sent on every request.
	Headers      map[string]string
	MaxBodyBytes int64
	UserAgent    string
}

// Client issues GET requests against one base URL.
type Client struct {
	name     string
	base     *url.URL
	headers  http.Header
	maxBody  int64
	http     *http.Client
	pipeline *resilience.Pipeline
	mw       *observe.Middleware
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMiddleware sets the observe middleware. Default: NopMiddleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) { c.mw = mw }
}

// New creates a client. The pipeline is required; its per-attempt timeout
// bounds each request, so the http.Client carries no timeout of its own.
func New(cfg Config, pipeline *resilience.Pipeline, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""

	headers := make(http.Header, len(cfg.Headers)+2)
	headers.Set("Accept", "application/json")
	if cfg.UserAgent != "" {
		headers.Set("User-Agent", cfg.UserAgent)
	}
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	c := &Client{
		name:     cfg.Name,
		base:     base,
		headers:  headers,
		maxBody:  cfg.MaxBodyBytes,
		pipeline: pipeline,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		mw: observe.NopMiddleware(),
	}
	if c.maxBody <= 0 {
		c.maxBody = DefaultMaxBodyBytes
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the dependency name.
func (c *Client) Name() string { return c.name }

// Pipeline returns the resilience pipeline guarding this dependency.
func (c *Client) Pipeline() *resilience.Pipeline { return c.pipeline }

// Get requests base URL + path with rawQuery attached verbatim. path must
// already be escaped. A non-2xx status is returned as
// *resilience.UpstreamError after the pipeline has run its course.
func (c *Client) Get(ctx context.Context, operation, path, rawQuery string) ([]byte, error) {
	endpoint := c.base.String() + path
	if rawQuery != "" {
		endpoint += "?" + rawQuery
	}

	var body []byte
	call := c.mw.Wrap(observe.CallMeta{Dependency: c.name, Operation: operation}, func(ctx context.Context) error {
		return c.pipeline.Execute(ctx, func(ctx context.Context) error {
			b, err := c.do(ctx, endpoint)
			if err != nil {
				return err
			}
			body = b
			return nil
		})
	})

	if err := call(ctx); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	req.Header = c.headers.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("upstream: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &resilience.UpstreamError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

func snippet(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
