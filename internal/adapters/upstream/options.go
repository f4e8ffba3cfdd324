package upstream

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/trev125/FlickPick/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithQueryParam adds a query parameter to every request, e.g. an API key.
func WithQueryParam(key, value string) Option {
	return func(c *Client) {
		c.query.Set(key, value)
	}
}

// WithRetries sets how often a 429 response is retried and the first backoff delay.
func WithRetries(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
	}
}

// WithBreaker tunes the circuit breaker: it opens once failureRatio of at
// least minRequests calls failed and probes again after openTimeout.
func WithBreaker(minRequests uint32, failureRatio float64, openTimeout time.Duration) Option {
	return func(c *Client) {
		if minRequests > 0 {
			c.breakerMinRequests = minRequests
		}
		if failureRatio > 0 {
			c.breakerRatio = failureRatio
		}
		if openTimeout > 0 {
			c.breakerTimeout = openTimeout
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
