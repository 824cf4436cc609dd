package timeslot

import "time"

// Interval is a half-open time range [Begin, End).
type Interval struct {
	Begin time.Time
	End   time.Time
}

// NewInterval constructs an interval from its bounds.
func NewInterval(begin, end time.Time) Interval {
	return Interval{Begin: begin, End: end}
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Begin)
}

// IsZero reports whether both bounds are unset.
func (iv Interval) IsZero() bool {
	return iv.Begin.IsZero() && iv.End.IsZero()
}

// Valid reports whether the interval has a positive duration.
func (iv Interval) Valid() bool {
	return iv.Begin.Before(iv.End)
}

// Expand widens the interval by the given buffers. Zero or negative buffers
// leave the corresponding bound untouched.
func (iv Interval) Expand(before, after time.Duration) Interval {
	out := iv
	if before > 0 {
		out.Begin = out.Begin.Add(-before)
	}
	if after > 0 {
		out.End = out.End.Add(after)
	}
	return out
}

// Intersects reports whether two half-open intervals share any instant.
// Boundary equality is not an intersection, so back-to-back intervals with
// zero gap never intersect.
func (iv Interval) Intersects(other Interval) bool {
	return iv.Begin.Before(other.End) && other.Begin.Before(iv.End)
}

// Contains reports whether the other interval lies entirely within this one.
func (iv Interval) Contains(other Interval) bool {
	return !other.Begin.Before(iv.Begin) && !other.End.After(iv.End)
}
