package application

import (
	"context"
	"testing"
	"time"

	"github.com/example/varaamo/internal/booking"
	"github.com/example/varaamo/internal/testfixtures"
)

func (env *reservationEnv) seedReservation(opts ...testfixtures.ReservationOption) booking.Reservation {
	reservation := testfixtures.NewReservation(opts...)
	env.reservations.reservations = append(env.reservations.reservations, reservation)
	return reservation
}

func TestCreateReservationConflicts(t *testing.T) {
	t.Run("direct overlap on the same unit", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)

		_, err := env.service.CreateReservation(context.Background(), CreateReservationParams{
			Principal: owner,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(10, 30),
				End:                tomorrow(11, 30),
			},
		})
		assertCode(t, err, CodeOverlappingReservations)
	})

	t.Run("back to back bookings are allowed", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)

		if _, err := env.service.CreateReservation(context.Background(), CreateReservationParams{
			Principal: owner,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(11, 0),
				End:                tomorrow(12, 0),
			},
		}); err != nil {
			t.Fatalf("CreateReservation: %v", err)
		}
	})

	t.Run("existing reservation's buffer blocks a later slot", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
			testfixtures.WithReservationBuffers(0, 61*time.Minute),
		)

		_, err := env.service.CreateReservation(context.Background(), CreateReservationParams{
			Principal: owner,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(12, 0),
				End:                tomorrow(13, 0),
			},
		})
		assertCode(t, err, CodeReservationOverlap)
	})

	t.Run("unit buffer applies to the candidate", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"), testfixtures.WithBuffers(30*time.Minute, 0))
		env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)

		_, err := env.service.CreateReservation(context.Background(), CreateReservationParams{
			Principal: owner,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(11, 15),
				End:                tomorrow(12, 15),
			},
		})
		assertCode(t, err, CodeReservationOverlap)
	})

	t.Run("effective buffer is the max of reservation and unit", func(t *testing.T) {
		env := newReservationEnv()
		// Unit demands 30 minutes; the caller asks for only 10.
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"), testfixtures.WithBuffers(30*time.Minute, 0))
		env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)

		_, err := env.service.CreateReservation(context.Background(), CreateReservationParams{
			Principal: owner,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(11, 15),
				End:                tomorrow(12, 15),
				BufferTimeBefore:   10 * time.Minute,
			},
		})
		assertCode(t, err, CodeReservationOverlap)
	})

	t.Run("units sharing a space tree conflict", func(t *testing.T) {
		env := newReservationEnv()
		parent := "hall"
		env.catalog.spaces = []booking.Space{
			{ID: "hall", Name: "Hall", UnitID: "unit-001"},
			{ID: "hall-a", Name: "Hall A", ParentID: &parent, UnitID: "unit-001"},
		}
		whole := env.seedUnit(testfixtures.WithUnitID("runit-hall"), testfixtures.WithSpaces("hall"))
		half := env.seedUnit(testfixtures.WithUnitID("runit-hall-a"), testfixtures.WithSpaces("hall-a"))

		env.seedReservation(
			testfixtures.OnUnits(whole.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)

		_, err := env.service.CreateReservation(context.Background(), CreateReservationParams{
			Principal: owner,
			Input: ReservationInput{
				ReservationUnitIDs: []string{half.ID},
				Begin:              tomorrow(10, 0),
				End:                tomorrow(11, 0),
			},
		})
		assertCode(t, err, CodeOverlappingReservations)
	})

	t.Run("units sharing a resource conflict", func(t *testing.T) {
		env := newReservationEnv()
		env.catalog.resources = []booking.Resource{{ID: "projector", Name: "Projector"}}
		first := env.seedUnit(testfixtures.WithUnitID("runit-1"), testfixtures.WithResources("projector"))
		second := env.seedUnit(testfixtures.WithUnitID("runit-2"), testfixtures.WithResources("projector"))

		env.seedReservation(
			testfixtures.OnUnits(first.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)

		_, err := env.service.CreateReservation(context.Background(), CreateReservationParams{
			Principal: owner,
			Input: ReservationInput{
				ReservationUnitIDs: []string{second.ID},
				Begin:              tomorrow(10, 30),
				End:                tomorrow(11, 30),
			},
		})
		assertCode(t, err, CodeOverlappingReservations)
	})

	t.Run("cancelled reservations free their slot", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
			testfixtures.WithState(booking.StateCancelled),
		)

		if _, err := env.service.CreateReservation(context.Background(), CreateReservationParams{
			Principal: owner,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(10, 0),
				End:                tomorrow(11, 0),
			},
		}); err != nil {
			t.Fatalf("CreateReservation: %v", err)
		}
	})
}

func TestUpdateReservation(t *testing.T) {
	t.Run("revalidating the same slot never conflicts with itself", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		existing := env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)
		existing.UserID = "user-1"
		env.reservations.reservations[0] = existing

		updated, err := env.service.UpdateReservation(context.Background(), UpdateReservationParams{
			Principal:     owner,
			ReservationID: existing.ID,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(10, 0),
				End:                tomorrow(11, 0),
			},
		})
		if err != nil {
			t.Fatalf("UpdateReservation: %v", err)
		}
		if !updated.Begin.Equal(tomorrow(10, 0)) {
			t.Fatalf("Begin = %v", updated.Begin)
		}
	})

	t.Run("moving onto another reservation is rejected", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		mine := env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)
		mine.UserID = "user-1"
		env.reservations.reservations[0] = mine
		env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(12, 0), tomorrow(13, 0)),
		)

		_, err := env.service.UpdateReservation(context.Background(), UpdateReservationParams{
			Principal:     owner,
			ReservationID: mine.ID,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(12, 30),
				End:                tomorrow(13, 30),
			},
		})
		assertCode(t, err, CodeOverlappingReservations)
	})

	t.Run("confirmed reservations cannot be modified", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		confirmed := env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
			testfixtures.WithState(booking.StateConfirmed),
		)
		confirmed.UserID = "user-1"
		env.reservations.reservations[0] = confirmed

		_, err := env.service.UpdateReservation(context.Background(), UpdateReservationParams{
			Principal:     owner,
			ReservationID: confirmed.ID,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(14, 0),
				End:                tomorrow(15, 0),
			},
		})
		assertCode(t, err, CodeModificationNotAllowed)
	})

	t.Run("moving within the same unit does not count itself toward the cap", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		unit.MaxReservationsPerUser = 1
		env.catalog.units[unit.ID] = unit

		mine := env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)
		mine.UserID = "user-1"
		env.reservations.reservations[0] = mine

		if _, err := env.service.UpdateReservation(context.Background(), UpdateReservationParams{
			Principal:     owner,
			ReservationID: mine.ID,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(14, 0),
				End:                tomorrow(15, 0),
			},
		}); err != nil {
			t.Fatalf("UpdateReservation: %v", err)
		}
	})

	t.Run("moving onto a different unit still honours its active cap", func(t *testing.T) {
		env := newReservationEnv()
		source := env.seedUnit(testfixtures.WithUnitID("runit-a"))
		target := env.seedUnit(testfixtures.WithUnitID("runit-b"))
		target.MaxReservationsPerUser = 1
		env.catalog.units[target.ID] = target

		mine := env.seedReservation(
			testfixtures.OnUnits(source.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)
		mine.UserID = "user-1"
		env.reservations.reservations[0] = mine

		held := env.seedReservation(
			testfixtures.OnUnits(target.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)
		held.UserID = "user-1"
		env.reservations.reservations[1] = held

		_, err := env.service.UpdateReservation(context.Background(), UpdateReservationParams{
			Principal:     owner,
			ReservationID: mine.ID,
			Input: ReservationInput{
				ReservationUnitIDs: []string{target.ID},
				Begin:              tomorrow(14, 0),
				End:                tomorrow(15, 0),
			},
		})
		assertCode(t, err, CodeMaxActiveReservationsReached)
	})

	t.Run("strangers cannot move other users' reservations", func(t *testing.T) {
		env := newReservationEnv()
		unit := env.seedUnit(testfixtures.WithUnitID("runit-1"))
		other := env.seedReservation(
			testfixtures.OnUnits(unit.ID),
			testfixtures.WithInterval(tomorrow(10, 0), tomorrow(11, 0)),
		)

		_, err := env.service.UpdateReservation(context.Background(), UpdateReservationParams{
			Principal:     Principal{UserID: "stranger"},
			ReservationID: other.ID,
			Input: ReservationInput{
				ReservationUnitIDs: []string{unit.ID},
				Begin:              tomorrow(14, 0),
				End:                tomorrow(15, 0),
			},
		})
		assertCode(t, err, CodeNoPermission)
	})
}
