package enrich

import "github.com/trev125/FlickPick/pkg/logger"

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithImageConcurrency bounds parallel person image lookups per movie.
func WithImageConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.imageConcurrency = n
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
