// Package poolwatch implements the monitoring core for a lending-pool
// contract: it polls the chain for new contract logs and tracked state
// values, detects occurrences that have not been alerted yet, drives
// notification delivery, and commits a durable cursor so a restart never
// silently drops or duplicates work.
package poolwatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabapcia/poolwatch/internal/pkg/logger"

	"github.com/google/uuid"
)

// ErrServiceAlreadyStarted is returned if Start is called more than once.
var ErrServiceAlreadyStarted = errors.New("service already started")

const (
	defaultPollInterval  = 15 * time.Second
	defaultErrorBackoff  = 30 * time.Second
	defaultMaxBlockRange = 1000
)

// Service runs the monitoring loop until Close is called. Close waits for
// the in-flight cycle to finish its commit before returning, so shutdown
// never leaves the cursor stale relative to partially dispatched work.
type Service interface {
	Start(ctx context.Context) error
	Close()
}

type closeFunc func()

type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc closeFunc
	wg        sync.WaitGroup

	chain      ChainClient
	decoder    EventDecoder
	dispatcher Dispatcher

	cursorStorage CursorStorage
	pollInterval  time.Duration
	errorBackoff  time.Duration
	maxBlockRange uint64
	stateFields   []string

	// cursor is owned by the run goroutine once Start returns; no other
	// goroutine reads or writes it.
	cursor StateCursor
}

var _ Service = (*service)(nil)

type config struct {
	cursorStorage CursorStorage
	pollInterval  time.Duration
	errorBackoff  time.Duration
	maxBlockRange uint64
	stateFields   []string
}

// Option customizes the monitor service.
type Option func(*config)

// WithCursorStorage wires a durable cursor store. Without it the monitor
// starts at the chain head on every run and cannot dedup across restarts.
func WithCursorStorage(cs CursorStorage) Option {
	return func(c *config) {
		c.cursorStorage = cs
	}
}

// WithPollInterval sets the sleep between successful cycles.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollInterval = d
	}
}

// WithErrorBackoff sets the longer sleep applied after a failed cycle.
func WithErrorBackoff(d time.Duration) Option {
	return func(c *config) {
		c.errorBackoff = d
	}
}

// WithMaxBlockRange caps how many blocks a single cycle may scan, so a
// monitor that fell behind catches up in bounded requests.
func WithMaxBlockRange(n uint64) Option {
	return func(c *config) {
		c.maxBlockRange = n
	}
}

// WithStateFields sets the tracked contract state fields, in the order
// their change alerts should be dispatched.
func WithStateFields(fields []string) Option {
	return func(c *config) {
		c.stateFields = fields
	}
}

// New assembles the monitor service from its three collaborators: the
// chain client, the event decoder, and the alert dispatcher.
func New(chain ChainClient, decoder EventDecoder, dispatcher Dispatcher, opts ...Option) *service {
	cfg := config{
		cursorStorage: nopCursorStorage{},
		pollInterval:  defaultPollInterval,
		errorBackoff:  defaultErrorBackoff,
		maxBlockRange: defaultMaxBlockRange,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &service{
		chain:         chain,
		decoder:       decoder,
		dispatcher:    dispatcher,
		cursorStorage: cfg.cursorStorage,
		pollInterval:  cfg.pollInterval,
		errorBackoff:  cfg.errorBackoff,
		maxBlockRange: cfg.maxBlockRange,
		stateFields:   cfg.stateFields,
	}
}

// Start loads (or initializes) the cursor and launches the polling loop in
// a background goroutine. It returns ErrServiceAlreadyStarted on a second
// call.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)

	cursor, err := s.loadInitialCursor(ctx)
	if err != nil {
		cancel()
		return err
	}
	s.cursor = cursor

	s.wg.Add(1)
	go s.run(ctx)

	s.closeFunc = func() {
		cancel()
		s.wg.Wait()
	}
	s.isStarted = true
	return nil
}

// Close stops the loop and blocks until the current cycle has resolved its
// commit step. Safe to call if the service never started.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}
	s.closeFunc = nil
	s.isStarted = false
}

// loadInitialCursor restores the persisted cursor, or creates one at the
// current chain head on first run so historical events are not replayed.
func (s *service) loadInitialCursor(ctx context.Context) (StateCursor, error) {
	cursor, err := s.cursorStorage.Load(ctx)
	if err == nil {
		if cursor.Baselines == nil {
			cursor.Baselines = make(map[string]string)
		}
		return cursor, nil
	}
	if !errors.Is(err, ErrNoCursorFound) {
		return StateCursor{}, err
	}

	head, err := s.chain.LatestBlock(ctx)
	if err != nil {
		return StateCursor{}, err
	}

	logger.Info(ctx, "no cursor found, starting at chain head", "head", head)
	return NewStateCursor(head), nil
}

func (s *service) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		interval := s.pollInterval
		if err := s.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}

			logger.Warn(ctx, "cycle failed, backing off", "error", err)
			interval = s.errorBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// runCycle executes one pass of the Fetching -> Detecting -> Dispatching ->
// Committing sequence. Any error before the dispatch phase leaves the
// cursor untouched, so the whole cycle is simply repeated after a backoff.
func (s *service) runCycle(ctx context.Context) error {
	cycleID := newCycleID()

	// Fetching.
	head, err := s.chain.LatestBlock(ctx)
	if err != nil {
		return err
	}

	// A mid-block cursor means a previous cycle stopped partway through a
	// block's logs; the whole block must be refetched so the remainder gets
	// its dispatch attempt. The strict position filter in detectOccurrences
	// drops the already-handled logs.
	from := s.cursor.LastProcessed.Block + 1
	if s.cursor.LastProcessed.LogIndex != maxLogIndex {
		from = s.cursor.LastProcessed.Block
	}
	to := head
	if to >= from && to-from+1 > s.maxBlockRange {
		to = from + s.maxBlockRange - 1
	}

	var rawLogs []RawLog
	if to >= from {
		if rawLogs, err = s.chain.FetchLogs(ctx, from, to); err != nil {
			return err
		}
	}

	var state map[string]string
	if len(s.stateFields) > 0 {
		if state, err = s.chain.ReadState(ctx, s.stateFields); err != nil {
			return err
		}
	}

	// Detecting.
	events := s.decodeAll(ctx, rawLogs)
	occurrences := detectOccurrences(events, state, s.stateFields, head, s.cursor)

	if len(occurrences) > 0 {
		logger.Info(ctx, "occurrences detected",
			"cycle", cycleID,
			"from", from,
			"to", to,
			"logs", len(rawLogs),
			"occurrences", len(occurrences),
		)
	}

	// Dispatching. next stages the commit: it advances past every
	// occurrence that was resolved (delivered or permanently failed) and
	// records the baselines of dispatched state changes.
	next := s.cursor.Clone()
	interrupted := false

	for _, occurrence := range occurrences {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		err := s.dispatcher.Dispatch(ctx, occurrence)
		if err != nil && ctx.Err() != nil {
			// Shutdown raced the delivery; the occurrence was never
			// resolved, so the cursor must not advance past it.
			interrupted = true
			break
		}
		if err != nil {
			logger.Error(ctx, "occurrence permanently undelivered",
				"cycle", cycleID,
				"occurrence", occurrence.ID(),
				"error", err,
			)
		}

		switch {
		case occurrence.Event != nil:
			if occurrence.Event.Position.After(next.LastProcessed) {
				next.LastProcessed = occurrence.Event.Position
			}
		case occurrence.Change != nil:
			next.Baselines[occurrence.Change.Field] = occurrence.Change.New
		}
	}

	// Committing. A clean cycle advances to the end of the scanned range
	// and refreshes every baseline, including first observations.
	if !interrupted {
		if to >= from {
			if boundary := EndOfBlock(to); boundary.After(next.LastProcessed) {
				next.LastProcessed = boundary
			}
		}
		for field, value := range state {
			next.Baselines[field] = value
		}
	}

	commitCtx := context.WithoutCancel(ctx)
	if err := s.cursorStorage.Save(commitCtx, next); err != nil {
		logger.Error(ctx, "cursor commit failed, cycle will be reprocessed",
			"cycle", cycleID,
			"position", next.LastProcessed,
			"error", err,
		)
		return err
	}
	s.cursor = next

	if interrupted {
		return ctx.Err()
	}
	return nil
}

// newCycleID returns a time-sortable ID correlating one cycle's log
// entries. An entropy failure falls back to a timestamp instead of killing
// the loop; cycle IDs are diagnostic, not load-bearing.
func newCycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("cycle-%d", time.Now().UnixNano())
	}
	return id.String()
}

// decodeAll converts raw logs to tracked events, silently passing over
// skipped logs and dropping undecodable ones with a warning.
func (s *service) decodeAll(ctx context.Context, rawLogs []RawLog) []TrackedEvent {
	events := make([]TrackedEvent, 0, len(rawLogs))
	for _, rawLog := range rawLogs {
		event, err := s.decoder.Decode(rawLog)
		if err != nil {
			if errors.Is(err, ErrLogSkipped) {
				continue
			}

			logger.Warn(ctx, "dropping undecodable log",
				"position", rawLog.Position(),
				"tx", rawLog.TxHash,
				"error", err,
			)
			continue
		}

		events = append(events, event)
	}
	return events
}
