// Package httpsource builds resource call functions over HTTP.
//
// Endpoints are expected to answer with the JSON envelope
//
//	{"success": true, "data": ..., "message": "...", "errors": [...], "pagination": {...}}
//
// Transient failures (connection errors, 429 and 5xx) are retried by the
// transport; what remains is handed to the resource as a call error.
package httpsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/vango-dev/fetchkit/pkg/resource"
)

// ErrUnexpectedStatus is returned when a response is neither 2xx nor a
// well-formed failure envelope.
var ErrUnexpectedStatus = errors.New("httpsource: unexpected status")

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 100 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
	defaultTimeout      = 30 * time.Second
	maxBodyBytes        = 10 << 20
)

// Client issues requests relative to a base URL.
type Client struct {
	base      *url.URL
	http      *retryablehttp.Client
	userAgent string
	headers   http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfig sets the retry count and backoff bounds.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = retryMax
		c.http.RetryWaitMin = waitMin
		c.http.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.HTTPClient.Timeout = d
		}
	}
}

// WithLogger routes transport logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.http.Logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpsource: parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("httpsource: base URL %q must be absolute", baseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.HTTPClient.Timeout = defaultTimeout
	rc.Logger = slog.New(slog.DiscardHandler)

	c := &Client{
		base:      base,
		http:      rc,
		userAgent: "fetchkit",
		headers:   make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns a call function that fetches path with the call params as
// query parameters.
func Get[T any](c *Client, path string) resource.CallFunc[T] {
	return func(ctx context.Context, params resource.Params) (resource.CallResult[T], error) {
		return do[T](ctx, c, http.MethodGet, path, params, nil)
	}
}

// List is Get for listing endpoints. The resource's page and limit travel
// as query parameters.
func List[T any](c *Client, path string) resource.CallFunc[[]T] {
	return Get[[]T](c, path)
}

// Post returns a call function that posts body as JSON to path. Call params
// become query parameters.
func Post[T any](c *Client, path string, body any) resource.CallFunc[T] {
	return func(ctx context.Context, params resource.Params) (resource.CallResult[T], error) {
		return do[T](ctx, c, http.MethodPost, path, params, body)
	}
}

func do[T any](ctx context.Context, c *Client, method, path string, params resource.Params, body any) (resource.CallResult[T], error) {
	var res resource.CallResult[T]

	var payload any
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return res, fmt.Errorf("httpsource: encode body: %w", err)
		}
		payload = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.url(path, params), payload)
	if err != nil {
		return res, fmt.Errorf("httpsource: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return res, fmt.Errorf("httpsource: read body: %w", err)
	}

	decodeErr := json.Unmarshal(raw, &res)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil {
			return res, fmt.Errorf("httpsource: decode envelope: %w", decodeErr)
		}
		return res, nil
	}

	// A failure envelope is a business failure regardless of status.
	if decodeErr == nil && !res.Success && (res.Message != "" || len(res.Errors) > 0) {
		return res, nil
	}
	return resource.CallResult[T]{}, fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, path, resp.StatusCode)
}

// url resolves path against the base URL and encodes params in key order.
func (c *Client) url(path string, params resource.Params) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		q := u.Query()
		for _, k := range keys {
			if v := params[k]; v != nil {
				q.Set(k, fmt.Sprint(v))
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}
