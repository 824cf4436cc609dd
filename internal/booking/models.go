package booking

import (
	"time"

	"github.com/example/varaamo/internal/pricing"
)

// StartInterval is the quantization granularity for reservation begin times,
// expressed in minutes.
type StartInterval int

const (
	StartInterval15 StartInterval = 15
	StartInterval30 StartInterval = 30
	StartInterval60 StartInterval = 60
	StartInterval90 StartInterval = 90
)

// Valid reports whether the interval is one of the supported granularities.
func (si StartInterval) Valid() bool {
	switch si {
	case StartInterval15, StartInterval30, StartInterval60, StartInterval90:
		return true
	}
	return false
}

// Duration returns the interval as a time.Duration.
func (si StartInterval) Duration() time.Duration {
	return time.Duration(si) * time.Minute
}

// Matches reports whether the begin time falls on a quantized boundary of the
// interval, measured as minutes since local midnight.
func (si StartInterval) Matches(begin time.Time) bool {
	if !si.Valid() {
		return false
	}
	minutes := begin.Hour()*60 + begin.Minute()
	if begin.Second() != 0 || begin.Nanosecond() != 0 {
		return false
	}
	return minutes%int(si) == 0
}

// Space is a physical location that can contain other spaces. Reservation
// units attached to a space compete with units attached to any ancestor or
// descendant of that space.
type Space struct {
	ID       string
	Name     string
	ParentID *string
	UnitID   string
}

// Resource is a piece of equipment tied to a space and shared between
// reservation units.
type Resource struct {
	ID      string
	Name    string
	SpaceID *string
}

// Unit groups reservation units under an organizational owner, scoped to
// service sectors for permission checks.
type Unit struct {
	ID               string
	Name             string
	ServiceSectorIDs []string
}

// ReservationUnit is the bookable entity users reserve.
type ReservationUnit struct {
	ID     string
	Name   string
	UnitID string
	SKU    string

	SpaceIDs    []string
	ResourceIDs []string

	StartInterval          StartInterval
	MinReservationDuration time.Duration
	MaxReservationDuration time.Duration

	BufferTimeBefore time.Duration
	BufferTimeAfter  time.Duration

	// ReservationBegins/Ends bound when the unit accepts bookings at all.
	ReservationBegins *time.Time
	ReservationEnds   *time.Time

	// Days-before bounds are evaluated at day granularity relative to "now".
	ReservationsMinDaysBefore int
	ReservationsMaxDaysBefore int

	MaxReservationsPerUser int

	AllowReservationsWithoutOpeningHours bool

	// RequireReservationHandling routes confirmed bookings through manual
	// approval instead of confirming them outright.
	RequireReservationHandling bool

	Pricing pricing.Terms

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation is a booked interval [Begin, End) on one or more reservation
// units, with mandatory idle buffers on the shared physical resources.
type Reservation struct {
	ID                 string
	UserID             string
	ReservationUnitIDs []string
	Begin              time.Time
	End                time.Time
	BufferTimeBefore   time.Duration
	BufferTimeAfter    time.Duration
	State              State
	Price              float64
	SKU                string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Duration returns the raw reservation length without buffers.
func (r Reservation) Duration() time.Duration {
	return r.End.Sub(r.Begin)
}

// BlocksSlot reports whether the reservation still occupies its slot for
// conflict purposes. Cancelled and denied reservations free the slot.
func (r Reservation) BlocksSlot() bool {
	return r.State != StateCancelled && r.State != StateDenied
}

// LinksUnit reports whether the reservation is attached to the given
// reservation unit.
func (r Reservation) LinksUnit(unitID string) bool {
	for _, id := range r.ReservationUnitIDs {
		if id == unitID {
			return true
		}
	}
	return false
}
