package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/recurring"
	"github.com/example/varaamo/internal/testfixtures"
)

type roundEnv struct {
	service *RoundService
	rounds  *roundRepoStub
	catalog *catalogRepoStub
	clock   *testfixtures.Clock
}

var sectorAdmin = Principal{UserID: "admin-1", ServiceSectorAdminIDs: []string{"sector-001"}}

func newRoundEnv() *roundEnv {
	env := &roundEnv{
		rounds:  newRoundRepoStub(),
		catalog: newCatalogRepoStub(),
		clock:   testfixtures.NewClock(testfixtures.ReferenceTime()),
	}
	unit := testfixtures.NewReservationUnit(testfixtures.WithUnitID("runit-1"))
	env.catalog.units[unit.ID] = unit
	env.service = NewRoundService(
		env.rounds,
		env.catalog,
		PermissionConfig{},
		recurring.NewEngine(time.UTC),
		testfixtures.NewIDGenerator("round").NextFunc(),
		env.clock.NowFunc(),
		nil,
	)
	return env
}

func validRoundInput() RoundInput {
	ref := testfixtures.ReferenceTime()
	return RoundInput{
		Name:                   "Spring 2024",
		ServiceSectorID:        "sector-001",
		ReservationUnitIDs:     []string{"runit-1"},
		ApplicationPeriodBegin: ref,
		ApplicationPeriodEnd:   ref.AddDate(0, 1, 0),
		ReservationPeriodBegin: ref.AddDate(0, 2, 0),
		ReservationPeriodEnd:   ref.AddDate(0, 5, 0),
		PublicDisplayBegin:     ref,
		PublicDisplayEnd:       ref.AddDate(0, 5, 0),
	}
}

func TestCreateRound(t *testing.T) {
	t.Run("valid input creates a draft round", func(t *testing.T) {
		env := newRoundEnv()
		input := validRoundInput()
		input.Baskets = []allocation.Basket{
			{Name: "Youth", OrderNumber: 1, AllocationPercentage: 30},
			{Name: "Clubs", OrderNumber: 2, AllocationPercentage: 30},
			{Name: "Open", OrderNumber: 3, AllocationPercentage: 40},
		}

		round, err := env.service.CreateRound(context.Background(), CreateRoundParams{Principal: sectorAdmin, Input: input})
		if err != nil {
			t.Fatalf("CreateRound: %v", err)
		}
		if round.Status != allocation.RoundDraft {
			t.Fatalf("Status = %s, want %s", round.Status, allocation.RoundDraft)
		}
		if len(round.Baskets) != 3 || round.Baskets[0].ID == "" {
			t.Fatalf("baskets were not assigned IDs: %+v", round.Baskets)
		}
	})

	t.Run("basket percentages must sum to 100", func(t *testing.T) {
		env := newRoundEnv()
		input := validRoundInput()
		input.Baskets = []allocation.Basket{
			{Name: "A", OrderNumber: 1, AllocationPercentage: 30},
			{Name: "B", OrderNumber: 2, AllocationPercentage: 30},
			{Name: "C", OrderNumber: 3, AllocationPercentage: 30},
		}

		_, err := env.service.CreateRound(context.Background(), CreateRoundParams{Principal: sectorAdmin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["baskets"]; !ok {
			t.Fatalf("missing baskets field error: %v", vErr.FieldErrors)
		}
	})

	t.Run("duplicate basket order numbers are rejected", func(t *testing.T) {
		env := newRoundEnv()
		input := validRoundInput()
		input.Baskets = []allocation.Basket{
			{Name: "A", OrderNumber: 1, AllocationPercentage: 50},
			{Name: "B", OrderNumber: 1, AllocationPercentage: 50},
		}

		_, err := env.service.CreateRound(context.Background(), CreateRoundParams{Principal: sectorAdmin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("reservation period must follow the application period", func(t *testing.T) {
		env := newRoundEnv()
		input := validRoundInput()
		input.ReservationPeriodBegin = input.ApplicationPeriodBegin
		input.ReservationPeriodEnd = input.ApplicationPeriodEnd

		_, err := env.service.CreateRound(context.Background(), CreateRoundParams{Principal: sectorAdmin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("unknown reservation unit is rejected", func(t *testing.T) {
		env := newRoundEnv()
		input := validRoundInput()
		input.ReservationUnitIDs = []string{"missing"}

		_, err := env.service.CreateRound(context.Background(), CreateRoundParams{Principal: sectorAdmin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("only sector admins may create rounds", func(t *testing.T) {
		env := newRoundEnv()

		_, err := env.service.CreateRound(context.Background(), CreateRoundParams{
			Principal: Principal{UserID: "user-1"},
			Input:     validRoundInput(),
		})
		assertCode(t, err, CodeNoPermission)
	})
}

func TestUpdateRoundStatus(t *testing.T) {
	t.Run("allowed transition", func(t *testing.T) {
		env := newRoundEnv()
		round := testfixtures.NewRound()
		env.rounds.rounds[round.ID] = round

		updated, err := env.service.UpdateRoundStatus(context.Background(), sectorAdmin, round.ID, allocation.RoundInReview)
		if err != nil {
			t.Fatalf("UpdateRoundStatus: %v", err)
		}
		if updated.Status != allocation.RoundInReview {
			t.Fatalf("Status = %s, want %s", updated.Status, allocation.RoundInReview)
		}
	})

	t.Run("skipping lifecycle stages is rejected", func(t *testing.T) {
		env := newRoundEnv()
		round := testfixtures.NewRound()
		env.rounds.rounds[round.ID] = round

		_, err := env.service.UpdateRoundStatus(context.Background(), sectorAdmin, round.ID, allocation.RoundHandled)
		assertCode(t, err, CodeStateChangeNotAllowed)
	})

	t.Run("approved rounds are frozen", func(t *testing.T) {
		env := newRoundEnv()
		round := testfixtures.NewRound(testfixtures.WithRoundStatus(allocation.RoundApproved))
		env.rounds.rounds[round.ID] = round

		for _, next := range []allocation.RoundStatus{allocation.RoundDraft, allocation.RoundSent, allocation.RoundHandled} {
			_, err := env.service.UpdateRoundStatus(context.Background(), sectorAdmin, round.ID, next)
			assertCode(t, err, CodeStateChangeNotAllowed)
		}
	})
}

func TestSubmitApplication(t *testing.T) {
	schedule := func() allocation.EventSchedule {
		return allocation.EventSchedule{
			Day:              time.Tuesday,
			Begin:            17 * time.Hour,
			End:              19 * time.Hour,
			Priority:         1,
			PreferredUnitIDs: []string{"runit-1"},
		}
	}

	t.Run("open round accepts submissions and stamps received order", func(t *testing.T) {
		env := newRoundEnv()
		round := testfixtures.NewRound(testfixtures.WithRoundUnits("runit-1"))
		env.rounds.rounds[round.ID] = round

		app, err := env.service.SubmitApplication(context.Background(), Principal{UserID: "applicant-1"}, allocation.Application{
			RoundID: round.ID,
			Events:  []allocation.Event{{Name: "Weekly practice", Schedules: []allocation.EventSchedule{schedule()}}},
		})
		if err != nil {
			t.Fatalf("SubmitApplication: %v", err)
		}
		if app.ID == "" || app.Events[0].ID == "" || app.Events[0].Schedules[0].ID == "" {
			t.Fatalf("IDs were not assigned: %+v", app)
		}
		if !app.ReceivedAt.Equal(env.clock.Now()) {
			t.Fatalf("ReceivedAt = %v, want clock time", app.ReceivedAt)
		}
		if app.ApplicantID != "applicant-1" {
			t.Fatalf("ApplicantID = %s", app.ApplicantID)
		}

		stored, err := env.service.ListApplications(context.Background(), round.ID)
		if err != nil {
			t.Fatalf("ListApplications: %v", err)
		}
		if len(stored) != 1 || stored[0].ID != app.ID {
			t.Fatalf("stored applications = %+v", stored)
		}
	})

	t.Run("closed round rejects submissions", func(t *testing.T) {
		env := newRoundEnv()
		round := testfixtures.NewRound(
			testfixtures.WithRoundUnits("runit-1"),
			testfixtures.WithRoundStatus(allocation.RoundAllocated),
		)
		env.rounds.rounds[round.ID] = round

		_, err := env.service.SubmitApplication(context.Background(), Principal{UserID: "applicant-1"}, allocation.Application{
			RoundID: round.ID,
			Events:  []allocation.Event{{Schedules: []allocation.EventSchedule{schedule()}}},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("preferred units must participate in the round", func(t *testing.T) {
		env := newRoundEnv()
		round := testfixtures.NewRound(testfixtures.WithRoundUnits("other-unit"))
		env.rounds.rounds[round.ID] = round

		_, err := env.service.SubmitApplication(context.Background(), Principal{UserID: "applicant-1"}, allocation.Application{
			RoundID: round.ID,
			Events:  []allocation.Event{{Schedules: []allocation.EventSchedule{schedule()}}},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestRunAllocation(t *testing.T) {
	availability := allocation.UnitAvailability{
		"runit-1": {time.Tuesday: []allocation.FreeSpan{{Begin: 8 * time.Hour, End: 22 * time.Hour}}},
	}

	t.Run("allocates applications and moves the round forward", func(t *testing.T) {
		env := newRoundEnv()
		round := testfixtures.NewRound(
			testfixtures.WithRoundUnits("runit-1"),
			testfixtures.WithRoundStatus(allocation.RoundReviewDone),
		)
		env.rounds.rounds[round.ID] = round
		env.rounds.applications = []allocation.Application{
			{
				ID:          "app-1",
				RoundID:     round.ID,
				ApplicantID: "applicant-1",
				ReceivedAt:  testfixtures.ReferenceTime(),
				Events: []allocation.Event{{
					ID: "e1",
					Schedules: []allocation.EventSchedule{{
						ID:               "s1",
						Day:              time.Tuesday,
						Begin:            17 * time.Hour,
						End:              19 * time.Hour,
						Priority:         1,
						PreferredUnitIDs: []string{"runit-1"},
					}},
				}},
			},
		}

		results, err := env.service.RunAllocation(context.Background(), sectorAdmin, round.ID, availability)
		if err != nil {
			t.Fatalf("RunAllocation: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("len(results) = %d, want 1", len(results))
		}
		if results[0].ReservationUnitID != "runit-1" {
			t.Fatalf("ReservationUnitID = %s", results[0].ReservationUnitID)
		}

		stored, _ := env.rounds.GetRound(context.Background(), round.ID)
		if stored.Status != allocation.RoundAllocated {
			t.Fatalf("round status = %s, want %s", stored.Status, allocation.RoundAllocated)
		}
		if persisted, _ := env.rounds.ListResults(context.Background(), round.ID); len(persisted) != 1 {
			t.Fatalf("results were not persisted")
		}
	})

	t.Run("draft rounds cannot be allocated", func(t *testing.T) {
		env := newRoundEnv()
		round := testfixtures.NewRound(testfixtures.WithRoundUnits("runit-1"))
		env.rounds.rounds[round.ID] = round

		_, err := env.service.RunAllocation(context.Background(), sectorAdmin, round.ID, availability)
		assertCode(t, err, CodeStateChangeNotAllowed)
	})
}

func TestExpandResults(t *testing.T) {
	env := newRoundEnv()
	round := testfixtures.NewRound(testfixtures.WithRoundUnits("runit-1"))
	// Four full weeks of reservation period.
	round.ReservationPeriodBegin = time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	round.ReservationPeriodEnd = time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	env.rounds.rounds[round.ID] = round
	env.rounds.results[round.ID] = []allocation.Result{{
		ScheduleID:        "s1",
		EventID:           "e1",
		ApplicationID:     "app-1",
		ReservationUnitID: "runit-1",
		Day:               time.Tuesday,
		Begin:             17 * time.Hour,
		End:               19 * time.Hour,
		Duration:          2 * time.Hour,
	}}

	occurrences, err := env.service.ExpandResults(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("ExpandResults: %v", err)
	}
	if len(occurrences) != 4 {
		t.Fatalf("len(occurrences) = %d, want 4", len(occurrences))
	}
	first := occurrences[0]
	if first.Begin.Weekday() != time.Tuesday || first.Begin.Hour() != 17 {
		t.Fatalf("first occurrence = %v", first.Begin)
	}
	if first.Result.ScheduleID != "s1" {
		t.Fatalf("Result.ScheduleID = %s", first.Result.ScheduleID)
	}
}
