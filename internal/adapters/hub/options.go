package hub

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/okian/evalharvest/internal/adapters/fetch"
	"github.com/okian/evalharvest/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithHubURL sets the base URL of the dataset host API.
func WithHubURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.hubURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRowsURL sets the base URL of the dataset rows service.
func WithRowsURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.rowsURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithRateLimit caps requests per second across all callers of the client.
// Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithPageSize sets how many rows one page request asks for.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithFetcher sets the retry policy wrapped around every request.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(c *Client) {
		if f != nil {
			c.fetcher = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
