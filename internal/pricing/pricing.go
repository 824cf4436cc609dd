// Package pricing computes reservation prices from a unit's pricing terms.
package pricing

import (
	"errors"
	"time"
)

// Unit is the basis a reservation unit charges on.
type Unit string

const (
	UnitFixed      Unit = "FIXED"
	UnitPer15Mins  Unit = "PER_15_MINS"
	UnitPer30Mins  Unit = "PER_30_MINS"
	UnitPerHour    Unit = "PER_HOUR"
	UnitPerHalfDay Unit = "PER_HALF_DAY"
	UnitPerDay     Unit = "PER_DAY"
	UnitPerWeek    Unit = "PER_WEEK"
)

// Granularity returns the billing granularity for time-based units, or zero
// for fixed pricing.
func (u Unit) Granularity() time.Duration {
	switch u {
	case UnitPer15Mins:
		return 15 * time.Minute
	case UnitPer30Mins:
		return 30 * time.Minute
	case UnitPerHour:
		return time.Hour
	case UnitPerHalfDay:
		return 12 * time.Hour
	case UnitPerDay:
		return 24 * time.Hour
	case UnitPerWeek:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Terms is a reservation unit's pricing configuration.
type Terms struct {
	Unit          Unit
	LowestPrice   float64
	HighestPrice  float64
	TaxPercentage float64
}

// ErrInvalidDuration indicates a non-positive billing duration.
var ErrInvalidDuration = errors.New("pricing: duration must be positive")

// BillableUnits counts billing units for a duration, rounding partially used
// units up to the next whole one. Fixed pricing always bills one unit.
func BillableUnits(u Unit, d time.Duration) (int, error) {
	if d <= 0 {
		return 0, ErrInvalidDuration
	}
	granularity := u.Granularity()
	if granularity == 0 {
		return 1, nil
	}
	units := int(d / granularity)
	if d%granularity != 0 {
		units++
	}
	return units, nil
}

// Range is the price span for a reservation before tax.
type Range struct {
	Lowest  float64
	Highest float64
}

// PriceRange computes the lowest and highest price for a reservation of the
// given duration under the terms.
func PriceRange(terms Terms, d time.Duration) (Range, error) {
	units, err := BillableUnits(terms.Unit, d)
	if err != nil {
		return Range{}, err
	}
	return Range{
		Lowest:  terms.LowestPrice * float64(units),
		Highest: terms.HighestPrice * float64(units),
	}, nil
}
