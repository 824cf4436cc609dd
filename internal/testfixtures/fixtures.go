package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/booking"
)

var (
	unitCounter        uint64
	reservationCounter uint64
	roundCounter       uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReservationUnitOption configures the generated reservation unit fixture.
type ReservationUnitOption func(*booking.ReservationUnit)

// NewReservationUnit returns a deterministic reservation unit with optional
// overrides. Defaults are deliberately permissive so individual tests only
// tighten the rule they exercise.
func NewReservationUnit(opts ...ReservationUnitOption) booking.ReservationUnit {
	idx := atomic.AddUint64(&unitCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	unit := booking.ReservationUnit{
		ID:                                   fmt.Sprintf("runit-%03d", idx),
		Name:                                 fmt.Sprintf("Reservation Unit %03d", idx),
		UnitID:                               "unit-001",
		StartInterval:                        booking.StartInterval15,
		AllowReservationsWithoutOpeningHours: true,
		CreatedAt:                            created,
		UpdatedAt:                            created,
	}
	for _, opt := range opts {
		opt(&unit)
	}
	return unit
}

// WithUnitID overrides the generated reservation unit ID.
func WithUnitID(id string) ReservationUnitOption {
	return func(u *booking.ReservationUnit) { u.ID = id }
}

// WithSpaces attaches spaces to the unit.
func WithSpaces(ids ...string) ReservationUnitOption {
	return func(u *booking.ReservationUnit) { u.SpaceIDs = ids }
}

// WithResources attaches resources to the unit.
func WithResources(ids ...string) ReservationUnitOption {
	return func(u *booking.ReservationUnit) { u.ResourceIDs = ids }
}

// WithBuffers sets the unit's mandatory buffer times.
func WithBuffers(before, after time.Duration) ReservationUnitOption {
	return func(u *booking.ReservationUnit) {
		u.BufferTimeBefore = before
		u.BufferTimeAfter = after
	}
}

// WithDurationBounds sets the unit's reservation duration limits.
func WithDurationBounds(min, max time.Duration) ReservationUnitOption {
	return func(u *booking.ReservationUnit) {
		u.MinReservationDuration = min
		u.MaxReservationDuration = max
	}
}

// WithStartInterval sets the quantization granularity.
func WithStartInterval(si booking.StartInterval) ReservationUnitOption {
	return func(u *booking.ReservationUnit) { u.StartInterval = si }
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*booking.Reservation)

// NewReservation returns a deterministic reservation fixture. The default
// interval is one hour starting a day after the reference time.
func NewReservation(opts ...ReservationOption) booking.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	begin := referenceTime.AddDate(0, 0, 1)
	reservation := booking.Reservation{
		ID:        fmt.Sprintf("resv-%03d", idx),
		UserID:    fmt.Sprintf("user-%03d", idx),
		Begin:     begin,
		End:       begin.Add(time.Hour),
		State:     booking.StateCreated,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&reservation)
	}
	return reservation
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(r *booking.Reservation) { r.ID = id }
}

// WithInterval sets the reservation's begin and end.
func WithInterval(begin, end time.Time) ReservationOption {
	return func(r *booking.Reservation) {
		r.Begin = begin
		r.End = end
	}
}

// WithReservationBuffers sets the reservation's own buffer times.
func WithReservationBuffers(before, after time.Duration) ReservationOption {
	return func(r *booking.Reservation) {
		r.BufferTimeBefore = before
		r.BufferTimeAfter = after
	}
}

// OnUnits links the reservation to the given reservation units.
func OnUnits(ids ...string) ReservationOption {
	return func(r *booking.Reservation) { r.ReservationUnitIDs = ids }
}

// WithState sets the reservation lifecycle state.
func WithState(state booking.State) ReservationOption {
	return func(r *booking.Reservation) { r.State = state }
}

// RoundOption configures the generated application round fixture.
type RoundOption func(*allocation.Round)

// NewRound returns a deterministic application round in DRAFT state with an
// open application period around the reference time.
func NewRound(opts ...RoundOption) allocation.Round {
	idx := atomic.AddUint64(&roundCounter, 1)
	round := allocation.Round{
		ID:                     fmt.Sprintf("round-%03d", idx),
		Name:                   fmt.Sprintf("Round %03d", idx),
		ServiceSectorID:        "sector-001",
		ApplicationPeriodBegin: referenceTime.AddDate(0, 0, -7),
		ApplicationPeriodEnd:   referenceTime.AddDate(0, 0, 7),
		ReservationPeriodBegin: referenceTime.AddDate(0, 1, 0),
		ReservationPeriodEnd:   referenceTime.AddDate(0, 4, 0),
		PublicDisplayBegin:     referenceTime.AddDate(0, 0, -7),
		PublicDisplayEnd:       referenceTime.AddDate(0, 4, 0),
		Status:                 allocation.RoundDraft,
		CreatedAt:              referenceTime,
		UpdatedAt:              referenceTime,
	}
	for _, opt := range opts {
		opt(&round)
	}
	return round
}

// WithRoundStatus sets the round's lifecycle status.
func WithRoundStatus(status allocation.RoundStatus) RoundOption {
	return func(r *allocation.Round) { r.Status = status }
}

// WithRoundUnits links reservation units to the round.
func WithRoundUnits(ids ...string) RoundOption {
	return func(r *allocation.Round) { r.ReservationUnitIDs = ids }
}

// WithBaskets attaches allocation baskets to the round.
func WithBaskets(baskets ...allocation.Basket) RoundOption {
	return func(r *allocation.Round) { r.Baskets = baskets }
}
