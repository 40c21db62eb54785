package poolwatch

import (
	"context"
	"fmt"
)

// StateChange records a tracked contract attribute moving away from its
// last-alerted baseline.
type StateChange struct {
	Field    string
	Old      string
	New      string
	Observed uint64 // block number the new value was read at
}

// Occurrence is one deduplicated, alert-worthy result of a monitoring
// cycle: either a tracked event passed through or a state change. Exactly
// one of the two fields is set.
type Occurrence struct {
	Event  *TrackedEvent
	Change *StateChange
}

// ID returns the occurrence's stable identity, suitable for downstream
// dedup by the notification viewer.
func (o Occurrence) ID() string {
	if o.Event != nil {
		return o.Event.Identity
	}
	return fmt.Sprintf("state:%s@%d", o.Change.Field, o.Change.Observed)
}

// Dispatcher delivers a single occurrence as an outbound notification.
//
// Implementations retry transient delivery failures internally with bounded
// backoff. A returned error means the occurrence is permanently undelivered
// (bad credentials, malformed payload, retries exhausted); the monitor logs
// it and moves on, so one bad occurrence never halts the loop. Delivery is
// at-least-once: a retry after a lost acknowledgment may double-send, and
// the occurrence ID lets the viewer collapse duplicates.
type Dispatcher interface {
	Dispatch(ctx context.Context, occurrence Occurrence) error
}
