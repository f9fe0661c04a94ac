package domain

import (
	"errors"
	"time"
)

// ErrInvalidTimeRange is returned when a range does not satisfy start < end.
var ErrInvalidTimeRange = errors.New("end time must be after start time")

// TimeRange is an immutable half-open interval [Start, End).
// Zero-length ranges are invalid; touching ranges do not overlap.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange creates a time range, rejecting empty or inverted ranges.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Overlaps checks if two time ranges overlap. Half-open semantics: a range
// ending exactly when another starts does not overlap it.
func (t TimeRange) Overlaps(other TimeRange) bool {
	return t.Start.Before(other.End) && other.Start.Before(t.End)
}

// OverlapsAny checks a candidate range against a set of busy ranges.
func (t TimeRange) OverlapsAny(others []TimeRange) bool {
	for _, other := range others {
		if t.Overlaps(other) {
			return true
		}
	}
	return false
}

// Contains checks if a point in time falls within the range.
func (t TimeRange) Contains(point time.Time) bool {
	return !point.Before(t.Start) && point.Before(t.End)
}

// Duration returns the length of the range.
func (t TimeRange) Duration() time.Duration {
	return t.End.Sub(t.Start)
}
