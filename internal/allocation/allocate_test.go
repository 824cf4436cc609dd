package allocation

import (
	"reflect"
	"testing"
	"time"
)

func testRound(baskets ...Basket) Round {
	return Round{
		ID:                 "round-1",
		Status:             RoundReviewDone,
		ReservationUnitIDs: []string{"u1", "u2"},
		Baskets:            baskets,
	}
}

func tuesdayAvailability(spans ...FreeSpan) UnitAvailability {
	return UnitAvailability{
		"u1": {time.Tuesday: spans},
	}
}

func app(id string, received time.Time, events ...Event) Application {
	return Application{ID: id, RoundID: "round-1", ApplicantID: "applicant-" + id, ReceivedAt: received, Events: events}
}

func weeklyEvent(id string, priority int, begin, end time.Duration, units ...string) Event {
	return Event{
		ID: id,
		Schedules: []EventSchedule{
			{ID: id + "-s1", Day: time.Tuesday, Begin: begin, End: end, Priority: priority, PreferredUnitIDs: units},
		},
	}
}

func TestAllocatorHigherPriorityWins(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	// Capacity for exactly one slot.
	availability := tuesdayAvailability(FreeSpan{Begin: 17 * time.Hour, End: 18 * time.Hour})

	applications := []Application{
		app("app-early", received, weeklyEvent("e1", 1, 17*time.Hour, 18*time.Hour, "u1")),
		app("app-late", received.Add(time.Hour), weeklyEvent("e2", 2, 17*time.Hour, 18*time.Hour, "u1")),
	}

	results := NewAllocator(testRound(), availability).Run(applications)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].EventID != "e2" {
		t.Fatalf("allocated event = %s, want the higher priority e2", results[0].EventID)
	}
}

func TestAllocatorEqualPriorityServedInReceivedOrder(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	availability := tuesdayAvailability(FreeSpan{Begin: 17 * time.Hour, End: 18 * time.Hour})

	applications := []Application{
		app("app-late", received.Add(time.Hour), weeklyEvent("e-late", 1, 17*time.Hour, 18*time.Hour, "u1")),
		app("app-early", received, weeklyEvent("e-early", 1, 17*time.Hour, 18*time.Hour, "u1")),
	}

	results := NewAllocator(testRound(), availability).Run(applications)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].EventID != "e-early" {
		t.Fatalf("allocated event = %s, want the earlier received e-early", results[0].EventID)
	}
}

func TestAllocatorSplitsFreeSpans(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	availability := tuesdayAvailability(FreeSpan{Begin: 8 * time.Hour, End: 22 * time.Hour})

	applications := []Application{
		app("app-1", received, weeklyEvent("e1", 1, 10*time.Hour, 12*time.Hour, "u1")),
		app("app-2", received.Add(time.Minute), weeklyEvent("e2", 1, 11*time.Hour, 13*time.Hour, "u1")),
		app("app-3", received.Add(2*time.Minute), weeklyEvent("e3", 1, 12*time.Hour, 14*time.Hour, "u1")),
	}

	results := NewAllocator(testRound(), availability).Run(applications)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].EventID != "e1" || results[1].EventID != "e3" {
		t.Fatalf("allocated events = %s, %s; want e1 and e3", results[0].EventID, results[1].EventID)
	}
}

func TestAllocatorFallsBackToNextPreferredUnit(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	availability := UnitAvailability{
		"u1": {time.Tuesday: []FreeSpan{{Begin: 17 * time.Hour, End: 18 * time.Hour}}},
		"u2": {time.Tuesday: []FreeSpan{{Begin: 8 * time.Hour, End: 22 * time.Hour}}},
	}

	applications := []Application{
		app("app-1", received, weeklyEvent("e1", 1, 17*time.Hour, 18*time.Hour, "u1", "u2")),
		app("app-2", received.Add(time.Minute), weeklyEvent("e2", 1, 17*time.Hour, 18*time.Hour, "u1", "u2")),
	}

	results := NewAllocator(testRound(), availability).Run(applications)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ReservationUnitID != "u1" {
		t.Fatalf("first allocation on %s, want preferred u1", results[0].ReservationUnitID)
	}
	if results[1].ReservationUnitID != "u2" {
		t.Fatalf("second allocation on %s, want fallback u2", results[1].ReservationUnitID)
	}
}

func TestAllocatorIgnoresUnitsOutsideRound(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	availability := UnitAvailability{
		"outsider": {time.Tuesday: []FreeSpan{{Begin: 8 * time.Hour, End: 22 * time.Hour}}},
	}

	applications := []Application{
		app("app-1", received, weeklyEvent("e1", 1, 17*time.Hour, 18*time.Hour, "outsider")),
	}

	results := NewAllocator(testRound(), availability).Run(applications)
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0 (unit is not in the round)", len(results))
	}
}

func TestAllocatorEnforcesBasketQuota(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	basket := Basket{ID: "b1", OrderNumber: 1, AllocationPercentage: 100, CustomerType: CustomerNonProfit}

	availability := tuesdayAvailability(FreeSpan{Begin: 8 * time.Hour, End: 22 * time.Hour})

	nonprofit := func(id string, offset time.Duration, begin, end time.Duration) Application {
		a := app(id, received.Add(offset), weeklyEvent("e-"+id, 1, begin, end, "u1"))
		a.CustomerType = CustomerNonProfit
		return a
	}

	// Four candidates against a 50% basket: quota is ceil(4 * 50 / 100) = 2.
	basket.AllocationPercentage = 50
	other := Basket{ID: "b2", OrderNumber: 2, AllocationPercentage: 50, CustomerType: CustomerBusiness}

	applications := []Application{
		nonprofit("1", 0, 8*time.Hour, 9*time.Hour),
		nonprofit("2", time.Minute, 9*time.Hour, 10*time.Hour),
		nonprofit("3", 2*time.Minute, 10*time.Hour, 11*time.Hour),
		nonprofit("4", 3*time.Minute, 11*time.Hour, 12*time.Hour),
	}

	results := NewAllocator(testRound(basket, other), availability).Run(applications)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (basket quota)", len(results))
	}
	for _, result := range results {
		if result.BasketID != "b1" {
			t.Fatalf("BasketID = %s, want b1", result.BasketID)
		}
	}
}

func TestAllocatorUnmatchedEventsAreNotQuotaConstrained(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	basket := Basket{ID: "b1", OrderNumber: 1, AllocationPercentage: 100, CustomerType: CustomerBusiness}

	availability := tuesdayAvailability(FreeSpan{Begin: 8 * time.Hour, End: 22 * time.Hour})

	application := app("app-1", received, weeklyEvent("e1", 1, 9*time.Hour, 10*time.Hour, "u1"))
	application.CustomerType = CustomerIndividual

	results := NewAllocator(testRound(basket), availability).Run([]Application{application})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].BasketID != "" {
		t.Fatalf("BasketID = %s, want empty for unmatched event", results[0].BasketID)
	}
}

func TestAllocatorReleasesQuotaWhenNoUnitFits(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	// Two candidates against a 50% basket leave a quota of one grant.
	basket := Basket{ID: "b1", OrderNumber: 1, AllocationPercentage: 50}
	unmatched := Basket{ID: "b2", OrderNumber: 2, AllocationPercentage: 50, CustomerType: CustomerBusiness}

	// Capacity only in the morning.
	availability := tuesdayAvailability(FreeSpan{Begin: 8 * time.Hour, End: 10 * time.Hour})

	applications := []Application{
		// Does not fit: would consume the only quota slot if not released.
		app("app-1", received, weeklyEvent("e1", 2, 18*time.Hour, 19*time.Hour, "u1")),
		app("app-2", received.Add(time.Minute), weeklyEvent("e2", 1, 8*time.Hour, 9*time.Hour, "u1")),
	}

	results := NewAllocator(testRound(basket, unmatched), availability).Run(applications)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].EventID != "e2" {
		t.Fatalf("allocated event = %s, want e2", results[0].EventID)
	}
}

func TestAllocatorSkipsSchedulesBelowMinDuration(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	availability := tuesdayAvailability(FreeSpan{Begin: 8 * time.Hour, End: 22 * time.Hour})

	event := weeklyEvent("e1", 1, 9*time.Hour, 10*time.Hour, "u1")
	event.MinDuration = 2 * time.Hour

	results := NewAllocator(testRound(), availability).Run([]Application{app("app-1", received, event)})
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0 (schedule shorter than event minimum)", len(results))
	}
}

func TestAllocatorIsDeterministic(t *testing.T) {
	received := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	build := func() ([]Application, UnitAvailability) {
		availability := UnitAvailability{
			"u1": {time.Tuesday: []FreeSpan{{Begin: 8 * time.Hour, End: 14 * time.Hour}}},
			"u2": {time.Tuesday: []FreeSpan{{Begin: 8 * time.Hour, End: 14 * time.Hour}}},
		}
		applications := []Application{
			app("app-c", received.Add(2*time.Minute), weeklyEvent("e3", 1, 9*time.Hour, 11*time.Hour, "u1", "u2")),
			app("app-a", received, weeklyEvent("e1", 2, 9*time.Hour, 11*time.Hour, "u1", "u2")),
			app("app-b", received.Add(time.Minute), weeklyEvent("e2", 1, 10*time.Hour, 12*time.Hour, "u1", "u2")),
		}
		return applications, availability
	}

	apps1, avail1 := build()
	first := NewAllocator(testRound(), avail1).Run(apps1)

	apps2, avail2 := build()
	second := NewAllocator(testRound(), avail2).Run(apps2)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("allocation is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
