package opening

import "time"

// Window bounds when a reservation unit accepts bookings.
type Window struct {
	// ReservationBegins/Ends bound the unit's global availability. Nil means
	// unbounded on that side.
	ReservationBegins *time.Time
	ReservationEnds   *time.Time

	// MinDaysBefore requires bookings to be made at least this many days ahead,
	// evaluated at day granularity: a booking later today satisfies
	// MinDaysBefore == 0, and the remaining hours of the current day still
	// count as the whole day.
	MinDaysBefore int
	// MaxDaysBefore caps how far ahead bookings may be made. Zero means no cap.
	MaxDaysBefore int
}

// WithinReservableWindow reports whether the unit accepts any booking at the
// given instant: now must fall inside [ReservationBegins, ReservationEnds].
func (w Window) WithinReservableWindow(now time.Time) bool {
	if w.ReservationBegins != nil && now.Before(*w.ReservationBegins) {
		return false
	}
	if w.ReservationEnds != nil && now.After(*w.ReservationEnds) {
		return false
	}
	return true
}

// WithinDaysBeforeBounds reports whether a booking made now for a slot
// beginning at begin satisfies the days-before bounds.
func (w Window) WithinDaysBeforeBounds(now, begin time.Time) bool {
	if begin.Before(now) {
		return false
	}

	days := daysBetween(now, begin)
	if w.MinDaysBefore > 0 && days < w.MinDaysBefore {
		return false
	}
	if w.MaxDaysBefore > 0 && days > w.MaxDaysBefore {
		return false
	}
	return true
}

// daysBetween counts whole calendar days from now's date to begin's date in
// begin's location, so bookings within the current day count as zero days out.
func daysBetween(now, begin time.Time) int {
	loc := begin.Location()
	nowDate := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	beginDate := time.Date(begin.Year(), begin.Month(), begin.Day(), 0, 0, 0, 0, loc)
	return int(beginDate.Sub(nowDate) / (24 * time.Hour))
}
