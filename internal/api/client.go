// Package api is the HTTP client for the cinelog backend: auth, movie
// catalog and the signed-in user's list.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// DefaultBaseURL matches the gateway address used in development.
const DefaultBaseURL = "http://localhost:8080/api"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Client talks to the backend. Safe for concurrent use.
type Client struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	retries  uint
	backoff  time.Duration
	observer func(RequestInfo)
}

// RequestInfo describes a finished request, for instrumentation.
type RequestInfo struct {
	Op       string
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Err      error
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout of the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithRateLimit limits outgoing requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetries sets how many extra attempts catalog GETs get.
func WithRetries(n uint, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// WithObserver registers a callback invoked after every request.
func WithObserver(fn func(RequestInfo)) Option {
	return func(c *Client) { c.observer = fn }
}

// WithTransport replaces the base transport beneath the bearer interceptor.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if bt, ok := c.client.Transport.(*bearerTransport); ok {
			bt.base = rt
		}
	}
}

// New creates a Client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: &bearerTransport{base: http.DefaultTransport, tokens: tokens},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		retries: 2,
		backoff: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one request.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	out    any
	retry  bool
}

// do executes a call, retrying idempotent catalog reads when asked to.
func (c *Client) do(ctx context.Context, cl call) error {
	if !cl.retry || c.retries == 0 {
		return c.once(ctx, cl)
	}
	return retry.Do(
		func() error { return c.once(ctx, cl) },
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(c.backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	)
}

func (c *Client) once(ctx context.Context, cl call) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer(RequestInfo{
				Op: cl.op, Method: cl.method, Path: cl.path,
				Status: status, Duration: time.Since(start), Err: err,
			})
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Message: "rate limiter wait failed", Err: err}
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", cl.op, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Status: status, Message: "read response", Err: err}
	}

	if status < 200 || status > 299 {
		return &Error{
			Kind:    kindForStatus(status),
			Op:      cl.op,
			Status:  status,
			Message: backendMessage(data, resp.Status),
		}
	}

	if cl.out == nil || status == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Status: status, Message: "decode response", Err: err}
	}
	return nil
}

// backendMessage pulls a human message out of an error body. The gateway
// returns either {"message": "..."} or {"error": "..."}; anything else falls
// back to the status line.
func backendMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}
