package poolwatch

import (
	"errors"
	"fmt"
)

// ErrLogSkipped is returned by EventDecoder implementations for logs the
// contract legitimately emits but that fall outside the tracked kind set.
// Skipping is an expected, non-exceptional outcome and is never logged as a
// failure.
var ErrLogSkipped = errors.New("log outside tracked kind set")

// DecodeError reports a log whose shape did not match its declared event.
// Retrying cannot help, so the monitor drops the log with a warning and
// keeps processing the rest of the batch.
type DecodeError struct {
	Position ChainPosition
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable log at %s: %v", e.Position, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EventDecoder turns raw contract logs into typed tracked events.
type EventDecoder interface {
	// Decode converts a single raw log. It returns ErrLogSkipped for logs
	// outside the tracked kind set and a *DecodeError for malformed
	// payloads. On success the returned event carries its final Identity.
	Decode(log RawLog) (TrackedEvent, error)
}
