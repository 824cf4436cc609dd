// Package opening answers whether a candidate interval is reservable on a
// reservation unit: the unit's own availability window, the days-before
// bounds, and the open hours published by an external provider.
package opening

import (
	"context"
	"time"

	"github.com/example/varaamo/internal/timeslot"
)

// TimeSpan is one contiguous open period on a given date.
type TimeSpan struct {
	Start time.Time
	End   time.Time
}

// Provider supplies open hours for a reservation unit on a date. Implementations
// typically wrap an external opening-hours service.
type Provider interface {
	OpenTimeSpans(ctx context.Context, reservationUnitID string, date time.Time) ([]TimeSpan, error)
}

// IsOpenWithin reports whether the candidate interval falls entirely inside at
// least one open span.
func IsOpenWithin(spans []TimeSpan, candidate timeslot.Interval) bool {
	for _, span := range spans {
		open := timeslot.Interval{Begin: span.Start, End: span.End}
		if open.Contains(candidate) {
			return true
		}
	}
	return false
}
