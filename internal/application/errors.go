package application

import (
	"errors"
	"fmt"
)

// Machine-readable codes surfaced to API callers. The set is stable; new
// failures must reuse an existing code or extend this list deliberately.
const (
	CodeOverlappingReservations      = "OVERLAPPING_RESERVATIONS"
	CodeReservationOverlap           = "RESERVATION_OVERLAP"
	CodeUnitNotOpen                  = "RESERVATION_UNIT_IS_NOT_OPEN"
	CodeUnitInOpenRound              = "RESERVATION_UNIT_IN_OPEN_ROUND"
	CodeMaxDurationExceeded          = "RESERVATION_UNITS_MAX_DURATION_EXCEEDED"
	CodeMinDurationNotExceeded       = "RESERVATION_UNIT_MIN_DURATION_NOT_EXCEEDED"
	CodeTimeDoesNotMatchInterval     = "RESERVATION_TIME_DOES_NOT_MATCH_ALLOWED_INTERVAL"
	CodeNotWithinAllowedTimeRange    = "RESERVATION_NOT_WITHIN_ALLOWED_TIME_RANGE"
	CodeUnitNotReservable            = "RESERVATION_UNIT_NOT_RESERVABLE"
	CodeAmbiguousSKU                 = "AMBIGUOUS_SKU"
	CodeStateChangeNotAllowed        = "STATE_CHANGE_NOT_ALLOWED"
	CodeApprovingNotAllowed          = "APPROVING_NOT_ALLOWED"
	CodeDenyingNotAllowed            = "DENYING_NOT_ALLOWED"
	CodeCancellationNotAllowed       = "CANCELLATION_NOT_ALLOWED"
	CodeModificationNotAllowed       = "RESERVATION_MODIFICATION_NOT_ALLOWED"
	CodeBeginInPast                  = "RESERVATION_BEGIN_IN_PAST"
	CodeMaxActiveReservationsReached = "MAX_NUMBER_OF_ACTIVE_RESERVATIONS_EXCEEDED"
	CodeNoPermission                 = "NO_PERMISSION"
	CodeExternalServiceError         = "EXTERNAL_SERVICE_ERROR"
)

// Error is a validation failure with a stable machine code and a
// human-readable message. Validation runs before any write, so a returned
// Error guarantees nothing was mutated.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func coded(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// noPermission is the uniform permission failure; callers never learn which
// rule rejected them.
func noPermission() *Error {
	return &Error{Code: CodeNoPermission, Message: "No permission to mutate"}
}

// CodeOf extracts the machine code from an error chain, or "" when the error
// carries none.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords
	// alike, so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
