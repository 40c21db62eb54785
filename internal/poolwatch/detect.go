package poolwatch

import "sort"

// detectOccurrences compares freshly fetched data against the cursor and
// yields the cycle's alert-worthy occurrences in dispatch order: events
// first, ascending by chain position, then state changes in tracked-field
// order.
//
// Events at or below cursor.LastProcessed are dropped; everything above it
// maps 1:1 to an occurrence. A state field produces an occurrence only when
// its current value differs from the recorded baseline under exact string
// equality; a field with no baseline yet is a first observation, not a
// change. The function is pure: calling it twice with the same inputs and
// the same cursor yields the same occurrences, and only the caller advances
// the cursor afterwards.
func detectOccurrences(events []TrackedEvent, state map[string]string, fields []string, observedAt uint64, cursor StateCursor) []Occurrence {
	occurrences := make([]Occurrence, 0, len(events))

	fresh := make([]TrackedEvent, 0, len(events))
	for _, event := range events {
		if event.Position.After(cursor.LastProcessed) {
			fresh = append(fresh, event)
		}
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Position.Compare(fresh[j].Position) < 0
	})
	for i := range fresh {
		occurrences = append(occurrences, Occurrence{Event: &fresh[i]})
	}

	for _, field := range fields {
		value, read := state[field]
		if !read {
			continue
		}
		baseline, known := cursor.Baseline(field)
		if !known || baseline == value {
			continue
		}
		occurrences = append(occurrences, Occurrence{Change: &StateChange{
			Field:    field,
			Old:      baseline,
			New:      value,
			Observed: observedAt,
		}})
	}

	return occurrences
}
