package application

import (
	"time"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/booking"
	"github.com/example/varaamo/internal/pricing"
)

// Principal is the authenticated caller. Role grants are resolved up front so
// permission checks stay pure functions over this struct.
type Principal struct {
	UserID                string
	GeneralAdmin          bool
	ServiceSectorAdminIDs []string
	UnitAdminIDs          []string
}

// ReservationInput captures caller provided reservation fields.
type ReservationInput struct {
	UserID             string
	ReservationUnitIDs []string
	Begin              time.Time
	End                time.Time
	BufferTimeBefore   time.Duration
	BufferTimeAfter    time.Duration
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// UpdateReservationParams wraps the data required to move a reservation's
// interval.
type UpdateReservationParams struct {
	Principal     Principal
	ReservationID string
	Input         ReservationInput
}

// ReservationUnitInput captures caller provided unit configuration.
type ReservationUnitInput struct {
	Name                                 string
	UnitID                               string
	SKU                                  string
	SpaceIDs                             []string
	ResourceIDs                          []string
	StartInterval                        booking.StartInterval
	MinReservationDuration               time.Duration
	MaxReservationDuration               time.Duration
	BufferTimeBefore                     time.Duration
	BufferTimeAfter                      time.Duration
	ReservationBegins                    *time.Time
	ReservationEnds                      *time.Time
	ReservationsMinDaysBefore            int
	ReservationsMaxDaysBefore            int
	MaxReservationsPerUser               int
	AllowReservationsWithoutOpeningHours bool
	RequireReservationHandling           bool
	Pricing                              pricing.Terms
}

// RoundInput captures caller provided application round fields.
type RoundInput struct {
	Name                   string
	ServiceSectorID        string
	ReservationUnitIDs     []string
	ApplicationPeriodBegin time.Time
	ApplicationPeriodEnd   time.Time
	ReservationPeriodBegin time.Time
	ReservationPeriodEnd   time.Time
	PublicDisplayBegin     time.Time
	PublicDisplayEnd       time.Time
	Baskets                []allocation.Basket
}

// CreateRoundParams wraps the data required to create an application round.
type CreateRoundParams struct {
	Principal Principal
	Input     RoundInput
}

// UserInput captures caller provided staff account attributes.
type UserInput struct {
	Email                 string
	DisplayName           string
	Password              string
	GeneralAdmin          bool
	ServiceSectorAdminIDs []string
	UnitAdminIDs          []string
}
