// Package httpclient implements the HTTP protocol shared by all source
// adapters: paced requests, exponential retry backoff, and cookie-aware
// sessions for sources that require a handshake.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"disclosure-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRequestDelay = 1 * time.Second
	DefaultMaxDelay     = 60 * time.Second
)

// ErrNotFound is returned for HTTP 404. It is terminal: the client does not
// retry a missing resource.
var ErrNotFound = errors.New("resource not found (404)")

// StatusError carries a non-2xx response for callers that inspect codes.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Client is a rate-limited HTTP client with retry/backoff.
// At most one request is in flight at a time per client; the limiter enforces
// the configured delay between consecutive requests.
type Client struct {
	name       string // source name for metrics
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	headers    map[string]string
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRequestDelay sets the minimum delay between consecutive requests.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithHeaders sets default headers applied to every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		c.headers = h
	}
}

// WithCookieJar installs a cookie jar for session-based sources.
func WithCookieJar() Option {
	return func(c *Client) {
		jar, _ := cookiejar.New(nil)
		c.client.Jar = jar
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// New creates a client for the named source.
func New(name string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		client:     &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(DefaultRequestDelay), 1),
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultRequestDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cookies returns the cookies currently held for u, or nil without a jar.
func (c *Client) Cookies(u *url.URL) []*http.Cookie {
	if c.client.Jar == nil {
		return nil
	}
	return c.client.Jar.Cookies(u)
}

// Get issues a paced GET and returns the response body.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, "", nil, headers)
}

// PostForm issues a paced POST with form-encoded values.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) ([]byte, error) {
	body := []byte(form.Encode())
	return c.do(ctx, http.MethodPost, rawURL, "application/x-www-form-urlencoded", body, headers)
}

// PostJSON issues a paced POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body []byte, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, rawURL, "application/json", body, headers)
}

// do performs the request with retries and exponential backoff.
// 404 is terminal. 429/502/503 double the current delay before retrying.
// Other failures back off by 2^attempt over the base delay.
func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body []byte, headers map[string]string) ([]byte, error) {
	delay := c.baseDelay
	if delay <= 0 {
		delay = DefaultRequestDelay
	}
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.DefaultMetrics.SourceRetriesTotal.WithLabelValues(c.name).Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		observability.DefaultMetrics.SourceFetchLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			observability.DefaultMetrics.SourceFetchesTotal.WithLabelValues(c.name, "error").Inc()
			delay = backoff(c.baseDelay, attempt, c.maxDelay)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			delay = backoff(c.baseDelay, attempt, c.maxDelay)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			observability.DefaultMetrics.SourceFetchesTotal.WithLabelValues(c.name, "not_found").Inc()
			return nil, ErrNotFound

		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusBadGateway,
			resp.StatusCode == http.StatusServiceUnavailable:
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: respBody}
			observability.DefaultMetrics.SourceFetchesTotal.WithLabelValues(c.name, "throttled").Inc()
			// Server is shedding load: double the current delay instead of
			// the standard 2^attempt schedule.
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
			continue

		case resp.StatusCode >= 500:
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: respBody}
			observability.DefaultMetrics.SourceFetchesTotal.WithLabelValues(c.name, "error").Inc()
			delay = backoff(c.baseDelay, attempt, c.maxDelay)
			continue

		case resp.StatusCode < 200 || resp.StatusCode > 299:
			// Remaining 4xx are terminal. The Senate adapter inspects 403
			// responses for WAF blocks, so they must surface unretried.
			observability.DefaultMetrics.SourceFetchesTotal.WithLabelValues(c.name, "error").Inc()
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
		}

		observability.DefaultMetrics.SourceFetchesTotal.WithLabelValues(c.name, "ok").Inc()
		return respBody, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// backoff computes the 2^attempt exponential delay capped at max.
func backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

// IsHTML reports whether body looks like an HTML document. Sources expecting
// JSON use this to detect WAF interstitial pages.
func IsHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<!DOCTYPE") ||
		strings.HasPrefix(trimmed, "<html") ||
		strings.HasPrefix(trimmed, "<HTML")
}
