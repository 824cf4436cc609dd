// Package recurring expands weekly allocation results into dated occurrences
// across an application round's reservation period.
package recurring

import (
	"errors"
	"time"
)

// WeeklySlot is an allocated weekly time: a weekday plus begin/end clock times
// expressed as offsets from local midnight.
type WeeklySlot struct {
	Weekday time.Weekday
	Begin   time.Duration
	End     time.Duration
}

// Occurrence is one concrete dated instance of a weekly slot.
type Occurrence struct {
	Begin time.Time
	End   time.Time
}

// Engine generates occurrences in a fixed timezone so clock times stay stable
// across daylight-saving transitions.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an engine normalizing output to loc. A nil loc falls
// back to UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

var (
	// ErrInvalidSlot indicates the slot's end does not follow its begin.
	ErrInvalidSlot = errors.New("recurring: slot end must be after begin")
	// ErrInvalidPeriod indicates the period's end precedes its start.
	ErrInvalidPeriod = errors.New("recurring: period end must not precede start")
)

// Expand produces one occurrence per matching weekday within the inclusive
// date period [periodStart, periodEnd]. Only the date portion of the period
// bounds is significant.
func (e *Engine) Expand(slot WeeklySlot, periodStart, periodEnd time.Time) ([]Occurrence, error) {
	if slot.End <= slot.Begin {
		return nil, ErrInvalidSlot
	}

	loc := e.location
	if loc == nil {
		loc = time.UTC
	}

	startDate := dateOf(periodStart, loc)
	endDate := dateOf(periodEnd, loc)
	if endDate.Before(startDate) {
		return nil, ErrInvalidPeriod
	}

	occurrences := make([]Occurrence, 0)
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != slot.Weekday {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			Begin: day.Add(slot.Begin),
			End:   day.Add(slot.End),
		})
	}

	return occurrences, nil
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	in := t.In(loc)
	return time.Date(in.Year(), in.Month(), in.Day(), 0, 0, 0, 0, loc)
}
