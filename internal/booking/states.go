package booking

// State is the lifecycle state of a reservation.
type State string

const (
	StateCreated           State = "CREATED"
	StateConfirmed         State = "CONFIRMED"
	StateDenied            State = "DENIED"
	StateCancelled         State = "CANCELLED"
	StateRequiresHandling  State = "REQUIRES_HANDLING"
	StateWaitingForPayment State = "WAITING_FOR_PAYMENT"
)

// Valid reports whether the state is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StateCreated, StateConfirmed, StateDenied, StateCancelled,
		StateRequiresHandling, StateWaitingForPayment:
		return true
	}
	return false
}

// Terminal reports whether the state ends the reservation lifecycle.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateDenied
}

// CanConfirm reports whether a reservation may move to CONFIRMED (or to
// REQUIRES_HANDLING when the unit demands manual handling) via the confirm
// operation.
func (s State) CanConfirm() bool {
	return s == StateCreated || s == StateWaitingForPayment
}

// CanApprove reports whether a handler may approve the reservation.
func (s State) CanApprove() bool {
	return s == StateRequiresHandling
}

// CanDeny reports whether a handler may deny the reservation.
func (s State) CanDeny() bool {
	return s == StateRequiresHandling
}

// CanCancel reports whether the owner may cancel the reservation.
func (s State) CanCancel() bool {
	return s == StateCreated || s == StateConfirmed
}

// CanRequireHandling reports whether the reservation may be sent back to
// manual handling.
func (s State) CanRequireHandling() bool {
	return s == StateCreated || s == StateConfirmed || s == StateWaitingForPayment
}

// CanModify reports whether the reservation's interval may still be edited.
func (s State) CanModify() bool {
	return s == StateCreated || s == StateWaitingForPayment
}
