// Package upstream is the shared HTTP transport for the weather APIs. Every
// call runs through a per-upstream circuit breaker and is never retried.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/sony/gobreaker/v2"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 512

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%d", e.Code)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Body)
}

// Settings configure one upstream client.
type Settings struct {
	Name      string
	Timeout   time.Duration
	UserAgent string
	Accept    string
}

// Client performs JSON GET requests against one upstream.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	userAgent  string
	accept     string
	metrics    *observability.Metrics
}

// NewClient creates a client with its own circuit breaker. Five consecutive
// failures open the breaker for 30 seconds.
func NewClient(s Settings, metrics *observability.Metrics) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return NewClientWithBreaker(s, cb, metrics)
}

// NewClientWithBreaker creates a client around a caller-provided breaker.
func NewClientWithBreaker(s Settings, cb *gobreaker.CircuitBreaker[*http.Response], metrics *observability.Metrics) *Client {
	accept := s.Accept
	if accept == "" {
		accept = "application/json"
	}
	return &Client{
		name:       s.Name,
		httpClient: &http.Client{Timeout: s.Timeout},
		breaker:    cb,
		userAgent:  s.UserAgent,
		accept:     accept,
		metrics:    metrics,
	}
}

// Name returns the upstream name used in metrics and errors.
func (c *Client) Name() string { return c.name }

// GetJSON fetches rawURL and decodes the body into v. Non-2xx responses are
// returned as *StatusError; an open breaker returns gobreaker.ErrOpenState.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", c.accept)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		// 5xx counts against the breaker.
		if r.StatusCode >= 500 {
			return r, statusError(r)
		}
		return r, nil
	})
	if err != nil {
		c.observe(start, "error")
		var se *StatusError
		if errors.As(err, &se) {
			return se
		}
		return fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(start, "error")
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		c.observe(start, "error")
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	c.observe(start, "success")
	return nil
}

// statusError drains and closes the body of a failed response.
func statusError(r *http.Response) *StatusError {
	defer r.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
	return &StatusError{Code: r.StatusCode, Body: strings.TrimSpace(string(body))}
}

func (c *Client) observe(start time.Time, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(c.name, outcome).Observe(time.Since(start).Seconds())
}
