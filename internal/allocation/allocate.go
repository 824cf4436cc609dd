package allocation

import (
	"sort"
	"time"
)

// FreeSpan is an available weekly time range on a reservation unit, as
// offsets from local midnight on a weekday.
type FreeSpan struct {
	Begin time.Duration
	End   time.Duration
}

// UnitAvailability maps reservation unit -> weekday -> free spans for one
// allocation run. Callers derive it from opening hours minus slots already
// allocated in earlier rounds.
type UnitAvailability map[string]map[time.Weekday][]FreeSpan

// Allocator matches requested weekly schedules against unit capacity under
// the round's basket quotas.
type Allocator struct {
	round        Round
	availability UnitAvailability
}

// NewAllocator prepares an allocation run for the round.
func NewAllocator(round Round, availability UnitAvailability) *Allocator {
	return &Allocator{round: round, availability: availability}
}

// Run produces one result per satisfiable schedule. Higher priority wins;
// within equal priority applications are served in received order, so a fixed
// input always reproduces the same results. Requests that do not fit within
// remaining capacity or basket quota stay unallocated; there are no partial
// grants.
func (a *Allocator) Run(applications []Application) []Result {
	candidates := a.collectCandidates(applications)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].schedule.Priority != candidates[j].schedule.Priority {
			return candidates[i].schedule.Priority > candidates[j].schedule.Priority
		}
		return candidates[i].order < candidates[j].order
	})

	quotas := a.basketQuotas(len(candidates))
	tracker := newCapacityTracker(a.availability)

	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		duration := candidate.schedule.End - candidate.schedule.Begin
		if duration <= 0 || duration < candidate.event.MinDuration {
			continue
		}

		basketID, withinQuota := quotas.claim(a.round.Baskets, candidate.app, candidate.event)
		if !withinQuota {
			continue
		}

		allocated := false
		for _, unitID := range candidate.schedule.PreferredUnitIDs {
			if !a.round.HasReservationUnit(unitID) {
				continue
			}
			if !tracker.reserve(unitID, candidate.schedule.Day, candidate.schedule.Begin, candidate.schedule.End) {
				continue
			}
			results = append(results, Result{
				ScheduleID:        candidate.schedule.ID,
				EventID:           candidate.event.ID,
				ApplicationID:     candidate.app.ID,
				ReservationUnitID: unitID,
				Day:               candidate.schedule.Day,
				Begin:             candidate.schedule.Begin,
				End:               candidate.schedule.End,
				Duration:          duration,
				BasketID:          basketID,
			})
			allocated = true
			break
		}

		if !allocated {
			quotas.release(basketID)
		}
	}

	return results
}

type candidate struct {
	app      Application
	event    Event
	schedule EventSchedule
	order    int
}

func (a *Allocator) collectCandidates(applications []Application) []candidate {
	ordered := make([]Application, len(applications))
	copy(ordered, applications)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ReceivedAt.Equal(ordered[j].ReceivedAt) {
			return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	candidates := make([]candidate, 0)
	for _, app := range ordered {
		if app.RoundID != a.round.ID {
			continue
		}
		for _, event := range app.Events {
			for _, schedule := range event.Schedules {
				candidates = append(candidates, candidate{
					app:      app,
					event:    event,
					schedule: schedule,
					order:    len(candidates),
				})
			}
		}
	}
	return candidates
}

// basketQuotas caps how many allocations each basket may absorb, as its
// percentage of the candidate pool rounded up. Events matching no basket are
// not quota constrained.
type basketQuotas struct {
	remaining map[string]int
}

func (a *Allocator) basketQuotas(totalCandidates int) *basketQuotas {
	quotas := &basketQuotas{remaining: make(map[string]int, len(a.round.Baskets))}
	for _, basket := range a.round.Baskets {
		share := totalCandidates * basket.AllocationPercentage
		quota := share / 100
		if share%100 != 0 {
			quota++
		}
		quotas.remaining[basket.ID] = quota
	}
	return quotas
}

// claim charges the first matching basket in order-number order. It returns
// the charged basket's ID, or false when every matching basket is exhausted.
func (q *basketQuotas) claim(baskets []Basket, app Application, event Event) (string, bool) {
	ordered := make([]Basket, len(baskets))
	copy(ordered, baskets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OrderNumber < ordered[j].OrderNumber })

	matchedAny := false
	for _, basket := range ordered {
		if !MatchesBasket(basket, app, event) {
			continue
		}
		matchedAny = true
		if q.remaining[basket.ID] > 0 {
			q.remaining[basket.ID]--
			return basket.ID, true
		}
	}

	if matchedAny {
		return "", false
	}
	return "", true
}

func (q *basketQuotas) release(basketID string) {
	if basketID == "" {
		return
	}
	q.remaining[basketID]++
}

// capacityTracker keeps per-unit per-weekday free spans, splitting them as
// slots are reserved so later candidates see the shrunken capacity.
type capacityTracker struct {
	free map[string]map[time.Weekday][]FreeSpan
}

func newCapacityTracker(availability UnitAvailability) *capacityTracker {
	free := make(map[string]map[time.Weekday][]FreeSpan, len(availability))
	for unitID, byDay := range availability {
		days := make(map[time.Weekday][]FreeSpan, len(byDay))
		for day, spans := range byDay {
			copied := make([]FreeSpan, len(spans))
			copy(copied, spans)
			days[day] = copied
		}
		free[unitID] = days
	}
	return &capacityTracker{free: free}
}

// reserve carves [begin, end) out of a free span when one fully contains it.
func (t *capacityTracker) reserve(unitID string, day time.Weekday, begin, end time.Duration) bool {
	spans := t.free[unitID][day]
	for i, span := range spans {
		if begin < span.Begin || end > span.End {
			continue
		}

		remainder := make([]FreeSpan, 0, len(spans)+1)
		remainder = append(remainder, spans[:i]...)
		if span.Begin < begin {
			remainder = append(remainder, FreeSpan{Begin: span.Begin, End: begin})
		}
		if end < span.End {
			remainder = append(remainder, FreeSpan{Begin: end, End: span.End})
		}
		remainder = append(remainder, spans[i+1:]...)
		t.free[unitID][day] = remainder
		return true
	}
	return false
}
