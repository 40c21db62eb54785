// Package alerting turns detected occurrences into push notifications.
// Each occurrence renders to a deterministic message, and delivery retries
// transient provider failures with capped exponential backoff. Delivery is
// at-least-once: the occurrence ID embedded in every message lets the
// receiving side collapse duplicates from retries whose acknowledgment was
// lost.
package alerting

import (
	"context"
	"time"

	"github.com/gabapcia/poolwatch/internal/pkg/logger"
	"github.com/gabapcia/poolwatch/internal/pkg/resilience/retry"
	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultGroup       = "poolwatch"
)

type service struct {
	notifier Notifier
	tokens   TokenRegistry
	group    string
	retry    retry.Retry
}

var _ poolwatch.Dispatcher = (*service)(nil)

type config struct {
	tokens      TokenRegistry
	group       string
	maxAttempts uint
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// Option customizes the dispatcher.
type Option func(*config)

// WithTokenRegistry supplies asset metadata for formatting and priority
// escalation.
func WithTokenRegistry(tokens TokenRegistry) Option {
	return func(c *config) {
		c.tokens = tokens
	}
}

// WithGroup sets the notification group label.
func WithGroup(group string) Option {
	return func(c *config) {
		c.group = group
	}
}

// WithMaxAttempts sets the delivery attempt ceiling per occurrence,
// including the first attempt.
func WithMaxAttempts(n uint) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithBackoff sets the base and cap of the retry delay schedule.
func WithBackoff(base, max time.Duration) Option {
	return func(c *config) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

// New builds the alert dispatcher around a notification channel.
func New(notifier Notifier, opts ...Option) *service {
	cfg := config{
		tokens:      TokenRegistry{},
		group:       defaultGroup,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := retry.New(
		retry.WithAttempts(cfg.maxAttempts),
		retry.WithDelayFunc(func(attempt uint) time.Duration {
			return backoffDelay(cfg.baseDelay, cfg.maxDelay, attempt)
		}),
		retry.WithRetryIf(IsTransientDelivery),
		retry.WithOnRetry(func(attempt uint, err error) {
			logger.Warn(context.Background(), "notification delivery failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
		}),
	)

	return &service{
		notifier: notifier,
		tokens:   cfg.tokens,
		group:    cfg.group,
		retry:    r,
	}
}

// Dispatch renders the occurrence and delivers it. Transient failures are
// retried up to the attempt ceiling; a permanent failure or exhausted
// retries return an error that is final for this occurrence only.
func (s *service) Dispatch(ctx context.Context, occurrence poolwatch.Occurrence) error {
	notification := s.render(occurrence)

	return s.retry.Execute(ctx, func() error {
		return s.notifier.Push(ctx, notification)
	})
}
