// Package upstream is the shared JSON-over-HTTP client used for the catalog
// and enrichment providers. Every call passes a rate limiter and a circuit
// breaker, and HTTP 429 responses are retried with exponential backoff.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/trev125/FlickPick/pkg/logger"
	"github.com/trev125/FlickPick/pkg/metrics"
)

// Client issues GET requests against one upstream API.
type Client struct {
	name       string
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[any]
	header     http.Header
	query      url.Values
	maxRetries int
	baseDelay  time.Duration
	logger     logger.Logger

	breakerMinRequests uint32
	breakerRatio       float64
	breakerTimeout     time.Duration
}

// New creates a client for baseURL. name labels metrics and logs.
func New(name, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s base url: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse %s base url: %q is not absolute", name, baseURL)
	}

	c := &Client{
		name:               name,
		baseURL:            u,
		httpClient:         &http.Client{Timeout: 30 * time.Second},
		header:             make(http.Header),
		query:              make(url.Values),
		maxRetries:         5,
		baseDelay:          time.Second,
		breakerMinRequests: 10,
		breakerRatio:       0.6,
		breakerTimeout:     2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named(name)
	}
	c.breaker = c.newBreaker()
	metrics.UpdateCircuitBreakerState(name, stateToFloat(gobreaker.StateClosed))
	return c, nil
}

// Name returns the client's label.
func (c *Client) Name() string { return c.name }

// State returns the circuit breaker state as a string.
func (c *Client) State() string { return stateToString(c.breaker.State()) }

func (c *Client) newBreaker() *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        c.name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < c.breakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= c.breakerRatio {
				c.logger.Warn(context.Background(), "opening circuit",
					logger.Int("failures", int(counts.TotalFailures)),
					logger.Float64("failure_rate", ratio*100),
				)
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info(context.Background(), "circuit state transition",
				logger.String("from", stateToString(from)),
				logger.String("to", stateToString(to)),
			)
			metrics.UpdateCircuitBreakerState(name, stateToFloat(to))
			metrics.RecordCircuitBreakerTransition(name, stateToString(from), stateToString(to))
		},
		// a missing title is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

// GetJSON fetches path (relative to the base URL) with query merged into
// the client's default parameters and decodes the body into out.
// A 404 yields ErrNotFound; an open circuit yields ErrUnavailable.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.get(ctx, path, query, out)
	})
	switch {
	case err == nil || errors.Is(err, ErrNotFound):
		metrics.RecordCircuitBreakerRequest(c.name, "success")
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCircuitBreakerRequest(c.name, "rejected")
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, c.name, err)
	default:
		metrics.RecordCircuitBreakerRequest(c.name, "failure")
	}
	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL.JoinPath(path)
	q := u.Query()
	for k, vs := range c.query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	resp, err := c.doWithRetry(ctx, u.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Service: c.name, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

// doWithRetry retries HTTP 429 with exponential backoff (baseDelay * 2^n),
// honouring a Retry-After header given in seconds up to the longest backoff
// step (baseDelay * 2^maxRetries).
func (c *Client) doWithRetry(ctx context.Context, target string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header = c.header.Clone()
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute %s request: %w", c.name, err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w: %s after %d retries", ErrRateLimited, c.name, c.maxRetries)
		}

		delay := c.baseDelay * (1 << attempt)
		if s := resp.Header.Get("Retry-After"); s != "" {
			if seconds, err := strconv.Atoi(s); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}
		delay = min(delay, c.baseDelay<<c.maxRetries)
		c.logger.Warn(ctx, "rate limited, retrying",
			logger.Duration("retry_delay", delay),
			logger.Int("attempt", attempt+1),
			logger.Int("max_retries", c.maxRetries),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
