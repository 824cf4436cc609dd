package persistence

import (
	"context"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/booking"
)

// ReservationRepository stores reservations and their unit links.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation booking.Reservation) error
	UpdateReservation(ctx context.Context, reservation booking.Reservation) error
	GetReservation(ctx context.Context, id string) (booking.Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]booking.Reservation, error)
	// CountActiveReservations counts a user's non-terminal reservations on a unit.
	CountActiveReservations(ctx context.Context, userID, reservationUnitID string) (int, error)
}

// CatalogRepository stores the bookable catalog: reservation units and the
// space/resource topology behind them.
type CatalogRepository interface {
	CreateReservationUnit(ctx context.Context, unit booking.ReservationUnit) error
	UpdateReservationUnit(ctx context.Context, unit booking.ReservationUnit) error
	GetReservationUnit(ctx context.Context, id string) (booking.ReservationUnit, error)
	ListReservationUnits(ctx context.Context) ([]booking.ReservationUnit, error)

	CreateSpace(ctx context.Context, space booking.Space) error
	ListSpaces(ctx context.Context) ([]booking.Space, error)

	CreateResource(ctx context.Context, resource booking.Resource) error
	ListResources(ctx context.Context) ([]booking.Resource, error)

	CreateUnit(ctx context.Context, unit booking.Unit) error
	GetUnit(ctx context.Context, id string) (booking.Unit, error)
}

// RoundRepository stores application rounds, submitted applications, and
// allocation results.
type RoundRepository interface {
	CreateRound(ctx context.Context, round allocation.Round) error
	UpdateRound(ctx context.Context, round allocation.Round) error
	GetRound(ctx context.Context, id string) (allocation.Round, error)
	ListRounds(ctx context.Context) ([]allocation.Round, error)

	CreateApplication(ctx context.Context, app allocation.Application) error
	ListApplications(ctx context.Context, roundID string) ([]allocation.Application, error)

	ReplaceResults(ctx context.Context, roundID string, results []allocation.Result) error
	ListResults(ctx context.Context, roundID string) ([]allocation.Result, error)
}

// UserRepository stores staff accounts and their role grants.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}
