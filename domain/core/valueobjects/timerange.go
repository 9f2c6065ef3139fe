package valueobjects

import "time"

// TimeRange is a value object covering an inclusive span of time.
// The zero value represents an empty range.
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange creates a range spanning start to end
func NewTimeRange(start, end time.Time) TimeRange {
	if end.Before(start) {
		start, end = end, start
	}
	return TimeRange{start: start, end: end}
}

// Start returns the beginning of the range
func (r TimeRange) Start() time.Time {
	return r.start
}

// End returns the end of the range
func (r TimeRange) End() time.Time {
	return r.end
}

// IsZero checks if the range is empty
func (r TimeRange) IsZero() bool {
	return r.start.IsZero() && r.end.IsZero()
}

// Contains checks if t falls within the range, boundaries included
func (r TimeRange) Contains(t time.Time) bool {
	if r.IsZero() {
		return false
	}
	return !t.Before(r.start) && !t.After(r.end)
}

// Widen returns a range extended to include t.
// Widening is monotonic: the resulting range never shrinks.
func (r TimeRange) Widen(t time.Time) TimeRange {
	if r.IsZero() {
		return TimeRange{start: t, end: t}
	}
	widened := r
	if t.Before(widened.start) {
		widened.start = t
	}
	if t.After(widened.end) {
		widened.end = t
	}
	return widened
}
