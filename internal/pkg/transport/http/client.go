// Package http builds outbound HTTP clients with retry support. It wraps
// HashiCorp's retryablehttp.Client and exposes functional options for the
// request timeout and retry policy. Every outbound integration (predicate
// registry, webhook sink) goes through this factory so retry behavior stays
// consistent.
package http

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// config holds the adjustable HTTP client settings.
type config struct {
	timeout      time.Duration // per-request deadline
	retryWaitMin time.Duration // minimum wait between retries
	retryWaitMax time.Duration // maximum wait between retries
	retryMax     int           // retries after the initial request
}

// Option customizes the client produced by NewClient.
type Option func(*config)

// NewClient returns a retryablehttp.Client. Defaults: 5s timeout, retries
// waiting between 1s and 5s, at most 2 retries. The internal retryablehttp
// logger is disabled; callers log through the shared logger package instead.
func NewClient(opts ...Option) *retryablehttp.Client {
	cfg := config{
		timeout:      5 * time.Second,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 5 * time.Second,
		retryMax:     2,
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

// WithTimeout sets the per-request deadline. Default: 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithRetryWaitMin sets the minimum wait between retries. Default: 1 second.
func WithRetryWaitMin(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMin = d
	}
}

// WithRetryWaitMax sets the maximum wait between retries. Default: 5 seconds.
func WithRetryWaitMax(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMax = d
	}
}

// WithRetryMax sets how many times a failed request is retried. Default: 2.
func WithRetryMax(n int) Option {
	return func(c *config) {
		c.retryMax = n
	}
}
