package timeslot

import "time"

// Slot is an existing reservation's occupancy on a physical resource: its raw
// interval plus the mandatory idle buffers on either side.
type Slot struct {
	ReservationID string
	Interval      Interval
	BufferBefore  time.Duration
	BufferAfter   time.Duration
}

// Effective returns the slot's interval expanded by its buffers.
func (s Slot) Effective() Interval {
	return s.Interval.Expand(s.BufferBefore, s.BufferAfter)
}

// ConflictKind describes how a candidate interval collides with an existing slot.
type ConflictKind string

const (
	// ConflictDirect indicates the raw intervals themselves overlap.
	ConflictDirect ConflictKind = "direct"
	// ConflictBufferBefore indicates the candidate starts inside the idle time
	// required after an earlier slot.
	ConflictBufferBefore ConflictKind = "buffer_before"
	// ConflictBufferAfter indicates the candidate's required idle time runs into
	// a later slot.
	ConflictBufferAfter ConflictKind = "buffer_after"
)

// Conflict reports a collision between a candidate and one existing slot.
type Conflict struct {
	WithReservationID string
	Kind              ConflictKind
}

// Candidate is the interval being validated together with its own buffers.
type Candidate struct {
	Interval     Interval
	BufferBefore time.Duration
	BufferAfter  time.Duration
	// ExcludeReservationID removes a reservation from the conflict set so an
	// update never collides with its own row.
	ExcludeReservationID string
}

// DetectConflict returns the first collision between the candidate and the
// given slots, or nil when the candidate fits. A collision requires the
// buffer-expanded intervals of both sides to intersect; raw intervals that
// merely touch at a boundary do not collide.
func DetectConflict(existing []Slot, candidate Candidate) *Conflict {
	expanded := candidate.Interval.Expand(candidate.BufferBefore, candidate.BufferAfter)

	for _, slot := range existing {
		if candidate.ExcludeReservationID != "" && slot.ReservationID == candidate.ExcludeReservationID {
			continue
		}
		if !expanded.Intersects(slot.Effective()) {
			continue
		}

		conflict := &Conflict{WithReservationID: slot.ReservationID, Kind: classify(candidate.Interval, slot)}
		return conflict
	}

	return nil
}

// DetectConflicts returns every collision instead of stopping at the first.
func DetectConflicts(existing []Slot, candidate Candidate) []Conflict {
	expanded := candidate.Interval.Expand(candidate.BufferBefore, candidate.BufferAfter)

	var conflicts []Conflict
	for _, slot := range existing {
		if candidate.ExcludeReservationID != "" && slot.ReservationID == candidate.ExcludeReservationID {
			continue
		}
		if !expanded.Intersects(slot.Effective()) {
			continue
		}
		conflicts = append(conflicts, Conflict{WithReservationID: slot.ReservationID, Kind: classify(candidate.Interval, slot)})
	}
	return conflicts
}

func classify(raw Interval, slot Slot) ConflictKind {
	if raw.Intersects(slot.Interval) {
		return ConflictDirect
	}
	// Buffer-only collision: the raw intervals are disjoint, so ordering tells
	// which side's idle time was violated.
	if !raw.Begin.Before(slot.Interval.End) {
		return ConflictBufferBefore
	}
	return ConflictBufferAfter
}
