// Package retry wraps avast/retry-go behind a small interface with
// functional options. The default policy is exponential backoff with a
// delay cap; callers can swap in their own delay schedule, observe each
// failed attempt, and mark error classes as non-retryable.
package retry

import (
	"context"
	"time"

	retry "github.com/avast/retry-go/v4"
)

// Retry executes operations with automatic retries on failure.
type Retry interface {
	// Execute runs operation, retrying according to the configured policy.
	// The operation must be idempotent. Execute returns nil once an attempt
	// succeeds, the last error when attempts are exhausted or the error is
	// classified non-retryable, and the context error if ctx ends first.
	Execute(ctx context.Context, operation func() error) error
}

// DelayFunc computes the wait before the next attempt. attempt counts
// failed attempts so far, starting at 0.
type DelayFunc func(attempt uint) time.Duration

// OnRetryFunc observes a failed attempt before the retry wait begins.
type OnRetryFunc func(attempt uint, err error)

// RetryIfFunc reports whether the error is worth retrying.
type RetryIfFunc func(err error) bool

type config struct {
	attempts  uint
	delay     time.Duration
	maxDelay  time.Duration
	delayFunc DelayFunc
	onRetry   OnRetryFunc
	retryIf   RetryIfFunc
}

// Option configures the retry policy.
type Option func(*config)

type retrier struct {
	cfg config
}

var _ Retry = (*retrier)(nil)

// New returns a Retry with the given policy. Defaults: 3 attempts total,
// exponential backoff from 1s capped at 5s, every error retryable.
func New(opts ...Option) Retry {
	cfg := config{
		attempts: 3,
		delay:    1 * time.Second,
		maxDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &retrier{cfg: cfg}
}

func (r *retrier) Execute(ctx context.Context, operation func() error) error {
	options := []retry.Option{
		retry.Attempts(r.cfg.attempts),
		retry.Delay(r.cfg.delay),
		retry.MaxDelay(r.cfg.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	}

	if r.cfg.delayFunc != nil {
		delayFunc := r.cfg.delayFunc
		options = append(options, retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return delayFunc(n)
		}))
	}
	if r.cfg.onRetry != nil {
		options = append(options, retry.OnRetry(retry.OnRetryFunc(r.cfg.onRetry)))
	}
	if r.cfg.retryIf != nil {
		options = append(options, retry.RetryIf(retry.RetryIfFunc(r.cfg.retryIf)))
	}

	return retry.Do(operation, options...)
}

// WithAttempts sets the maximum number of attempts, including the first.
func WithAttempts(n uint) Option {
	return func(c *config) {
		c.attempts = n
	}
}

// WithDelay sets the base delay used by the default exponential schedule.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
	}
}

// WithMaxDelay caps the wait between attempts.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.maxDelay = d
	}
}

// WithDelayFunc replaces the default exponential schedule entirely. The
// cap set by WithMaxDelay does not apply to a custom schedule.
func WithDelayFunc(f DelayFunc) Option {
	return func(c *config) {
		c.delayFunc = f
	}
}

// WithOnRetry registers a callback invoked after each failed attempt.
func WithOnRetry(f OnRetryFunc) Option {
	return func(c *config) {
		c.onRetry = f
	}
}

// WithRetryIf restricts retries to errors the predicate accepts; any other
// error is returned immediately.
func WithRetryIf(f RetryIfFunc) Option {
	return func(c *config) {
		c.retryIf = f
	}
}
