// Package retry provides a small retry abstraction over avast/retry-go with
// exponential backoff and functional options. It is used around operations
// that fail transiently, such as storage reads and outbound HTTP calls.
//
// Basic usage:
//
//	r := retry.New(retry.WithAttempts(5))
//	err := r.Execute(ctx, func() error {
//	    return store.SaveSubscriptionState(ctx, id, state)
//	})
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Retry executes operations with automatic retries on failure.
type Retry interface {
	// Execute runs the operation, retrying with exponential backoff until it
	// succeeds, the configured attempts are exhausted, or ctx is done. The
	// operation must be safe to call more than once.
	Execute(ctx context.Context, operation func() error) error
}

// config holds the internal retry settings.
type config struct {
	attempts    uint          // total attempts, including the first call
	delay       time.Duration // base delay before the first retry
	maxDelay    time.Duration // cap on the backoff growth
	lastErrOnly bool          // return only the last attempt's error
}

// Option adjusts the retry configuration.
type Option func(*config)

// retrier is the retry-go backed implementation of Retry.
type retrier struct {
	cfg config
}

var _ Retry = (*retrier)(nil)

// New returns a Retry with exponential backoff. Defaults: 3 attempts, 1s base
// delay, 5s max delay, last error only.
func New(opts ...Option) Retry {
	cfg := config{
		attempts:    3,
		delay:       1 * time.Second,
		maxDelay:    5 * time.Second,
		lastErrOnly: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &retrier{
		cfg: cfg,
	}
}

// Execute runs the operation under the configured retry policy. Cancellation
// of ctx stops further attempts and surfaces the context error.
func (r *retrier) Execute(ctx context.Context, operation func() error) error {
	options := []retrygo.Option{
		retrygo.Attempts(r.cfg.attempts),
		retrygo.Delay(r.cfg.delay),
		retrygo.MaxDelay(r.cfg.maxDelay),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.LastErrorOnly(r.cfg.lastErrOnly),
		retrygo.Context(ctx),
	}

	return retrygo.Do(operation, options...)
}

// WithAttempts sets the total number of attempts, including the initial call.
// Default: 3.
func WithAttempts(n uint) Option {
	return func(c *config) {
		c.attempts = n
	}
}

// WithDelay sets the base delay before the first retry. Subsequent delays grow
// exponentially from this value. Default: 1 second.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
	}
}

// WithMaxDelay caps the delay between attempts. Default: 5 seconds.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.maxDelay = d
	}
}

// WithLastErrorOnly controls whether Execute returns only the final attempt's
// error (true, the default) or every attempt's error combined.
func WithLastErrorOnly(b bool) Option {
	return func(c *config) {
		c.lastErrOnly = b
	}
}
