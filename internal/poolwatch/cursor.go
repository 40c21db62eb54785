package poolwatch

import (
	"context"
	"errors"
	"maps"
)

// ErrNoCursorFound is returned by CursorStorage.Load when no cursor has
// been persisted yet. The monitor treats it as a first run and starts from
// the current chain head.
var ErrNoCursorFound = errors.New("no cursor found")

// StateCursor is the durable checkpoint of monitoring progress: the highest
// fully handled chain position plus the last-alerted value of every tracked
// state field. It is owned exclusively by the monitor loop and only ever
// advances.
type StateCursor struct {
	LastProcessed ChainPosition     `json:"last_processed"`
	Baselines     map[string]string `json:"baselines"`
}

// NewStateCursor returns a cursor positioned at the end of the given block
// with no recorded baselines.
func NewStateCursor(block uint64) StateCursor {
	return StateCursor{
		LastProcessed: EndOfBlock(block),
		Baselines:     make(map[string]string),
	}
}

// Baseline returns the last-alerted value for the field, if any.
func (c StateCursor) Baseline(field string) (string, bool) {
	v, ok := c.Baselines[field]
	return v, ok
}

// Clone returns a deep copy so a cycle can stage its commit without
// mutating the live cursor.
func (c StateCursor) Clone() StateCursor {
	out := StateCursor{
		LastProcessed: c.LastProcessed,
		Baselines:     make(map[string]string, len(c.Baselines)),
	}
	maps.Copy(out.Baselines, c.Baselines)
	return out
}

// CursorStorage persists the monitoring cursor across restarts.
type CursorStorage interface {
	// Load returns the last committed cursor, or ErrNoCursorFound if none
	// has been saved yet.
	Load(ctx context.Context) (StateCursor, error)

	// Save commits the cursor. The write must be atomic with respect to a
	// process crash: a reader afterwards sees either the previous cursor or
	// this one, never a partial value.
	Save(ctx context.Context, cursor StateCursor) error
}

// nopCursorStorage keeps no durable state. It backs the service default so
// the monitor still runs (without restart dedup) when no store is wired.
type nopCursorStorage struct{}

var _ CursorStorage = nopCursorStorage{}

func (nopCursorStorage) Load(ctx context.Context) (StateCursor, error) {
	return StateCursor{}, ErrNoCursorFound
}

func (nopCursorStorage) Save(ctx context.Context, cursor StateCursor) error {
	return nil
}
