package allocation

import (
	"errors"
	"fmt"
)

var (
	// ErrPercentageSum indicates basket allocation percentages do not sum to 100.
	ErrPercentageSum = errors.New("allocation: basket allocation percentages must sum to 100")
	// ErrDuplicateOrderNumber indicates two baskets share an order number.
	ErrDuplicateOrderNumber = errors.New("allocation: order numbers should be unique")
	// ErrStatusChangeNotAllowed indicates a forbidden round status transition.
	ErrStatusChangeNotAllowed = errors.New("allocation: status change not allowed")
)

// ValidateBaskets enforces the round-level basket invariants: unique order
// numbers and percentages summing to exactly 100. Rounds without baskets are
// valid and allocate without quotas.
func ValidateBaskets(baskets []Basket) error {
	if len(baskets) == 0 {
		return nil
	}

	sum := 0
	orders := make(map[int]struct{}, len(baskets))
	for _, basket := range baskets {
		if _, dup := orders[basket.OrderNumber]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateOrderNumber, basket.OrderNumber)
		}
		orders[basket.OrderNumber] = struct{}{}

		if basket.AllocationPercentage < 0 || basket.AllocationPercentage > 100 {
			return fmt.Errorf("%w: basket %q has %d%%", ErrPercentageSum, basket.Name, basket.AllocationPercentage)
		}
		sum += basket.AllocationPercentage
	}

	if sum != 100 {
		return fmt.Errorf("%w: got %d", ErrPercentageSum, sum)
	}
	return nil
}

// ValidatePeriods checks the round's temporal configuration.
func ValidatePeriods(round Round) error {
	if !round.ApplicationPeriodBegin.Before(round.ApplicationPeriodEnd) {
		return errors.New("allocation: application period begin must precede end")
	}
	if !round.ReservationPeriodBegin.Before(round.ReservationPeriodEnd) {
		return errors.New("allocation: reservation period begin must precede end")
	}
	if round.ReservationPeriodBegin.Before(round.ApplicationPeriodEnd) {
		return errors.New("allocation: reservation period must start after the application period closes")
	}
	return nil
}

// Transition applies a status change, rejecting moves the lifecycle forbids.
func Transition(round Round, next RoundStatus) (Round, error) {
	if !round.Status.CanTransitionTo(next) {
		return round, fmt.Errorf("%w: %s -> %s", ErrStatusChangeNotAllowed, round.Status, next)
	}
	round.Status = next
	return round, nil
}

// MatchesBasket reports whether an application's event falls under the
// basket's filters. Empty filters match everything.
func MatchesBasket(basket Basket, app Application, event Event) bool {
	if basket.CustomerType != "" && basket.CustomerType != app.CustomerType {
		return false
	}
	if len(basket.PurposeIDs) > 0 && !containsString(basket.PurposeIDs, event.PurposeID) {
		return false
	}
	if len(basket.AgeGroupIDs) > 0 && !containsString(basket.AgeGroupIDs, event.AgeGroupID) {
		return false
	}
	return true
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
