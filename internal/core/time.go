package core

import "time"

// Time is the wall-clock type used throughout execution/task/schedule
// records. spec.md §9(a) notes the original Python implementation wrote
// naive local time and leaves UTC-vs-local ambiguous; this rewrite
// resolves that by always recording UTC (see DESIGN.md Open Questions).
type Time = time.Time

// Now returns the current instant in UTC, the single clock source used
// for every timestamp the store persists.
func Now() Time {
	return time.Now().UTC()
}
