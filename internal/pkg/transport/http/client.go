// Package http builds retryablehttp clients for the outbound HTTP calls
// the monitor makes. Retries here cover connection-level hiccups; request
// semantics (what is worth resending) stay with the caller.
package http

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type config struct {
	timeout      time.Duration
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	retryMax     int
}

// Option configures the HTTP client factory.
type Option func(*config)

// NewClient returns a retryablehttp.Client. Defaults: 10s request timeout,
// 1 connection-level retry waiting between 500ms and 2s.
func NewClient(opts ...Option) *retryablehttp.Client {
	cfg := config{
		timeout:      10 * time.Second,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 2 * time.Second,
		retryMax:     1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.HTTPClient.Timeout = cfg.timeout
	client.RetryWaitMin = cfg.retryWaitMin
	client.RetryWaitMax = cfg.retryWaitMax
	client.RetryMax = cfg.retryMax
	return client
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithRetryWaitMin sets the minimum wait between connection retries.
func WithRetryWaitMin(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMin = d
	}
}

// WithRetryWaitMax sets the maximum wait between connection retries.
func WithRetryWaitMax(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMax = d
	}
}

// WithRetryMax sets how many connection-level retries are attempted.
func WithRetryMax(n int) Option {
	return func(c *config) {
		c.retryMax = n
	}
}
