// Package heartbeat pushes a periodic liveness notification through the
// same channel used for alerts, so a silent monitor can be told apart from
// a quiet market.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabapcia/poolwatch/internal/alerting"
	"github.com/gabapcia/poolwatch/internal/pkg/logger"
)

// ErrServiceAlreadyStarted is returned if Start is called more than once.
var ErrServiceAlreadyStarted = errors.New("service already started")

const defaultInterval = 8 * time.Hour

// Service emits liveness notifications until Close is called.
type Service interface {
	Start(ctx context.Context) error
	Close()
}

type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc func()
	wg        sync.WaitGroup

	notifier alerting.Notifier
	group    string
	interval time.Duration
	now      func() time.Time
}

var _ Service = (*service)(nil)

type config struct {
	group    string
	interval time.Duration
	now      func() time.Time
}

// Option customizes the heartbeat service.
type Option func(*config)

// WithInterval sets the time between liveness notifications.
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		c.interval = d
	}
}

// WithGroup sets the notification group label.
func WithGroup(group string) Option {
	return func(c *config) {
		c.group = group
	}
}

// withNow overrides the clock; used by tests.
func withNow(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// New builds a heartbeat service over the given notifier.
func New(notifier alerting.Notifier, opts ...Option) *service {
	cfg := config{
		group:    "poolwatch-heartbeat",
		interval: defaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &service{
		notifier: notifier,
		group:    cfg.group,
		interval: cfg.interval,
		now:      cfg.now,
	}
}

// Start launches the heartbeat ticker. The first beat fires after one full
// interval, not immediately, so restarts do not spam the channel.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run(ctx)

	s.closeFunc = func() {
		cancel()
		s.wg.Wait()
	}
	s.isStarted = true
	return nil
}

// Close stops the ticker. Safe to call if the service never started.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}
	s.closeFunc = nil
	s.isStarted = false
}

func (s *service) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.beat(ctx)
		}
	}
}

// beat sends a single liveness notification. Failures are logged and the
// ticker keeps going; a missed heartbeat is itself the signal.
func (s *service) beat(ctx context.Context) {
	err := s.notifier.Push(ctx, s.buildNotification())
	if err != nil {
		logger.Warn(ctx, "heartbeat delivery failed", "error", err)
		return
	}

	logger.Debug(ctx, "heartbeat delivered")
}

// buildNotification renders the liveness message with the current time.
func (s *service) buildNotification() alerting.Notification {
	return alerting.Notification{
		Title: "Monitor heartbeat",
		Body:  fmt.Sprintf("Still watching\nTime: %s", s.now().UTC().Format(time.RFC3339)),
		Group: s.group,
	}
}
