package persistence

import "time"

// User is a staff account with role grants used for permission checks.
type User struct {
	ID                    string
	Email                 string
	DisplayName           string
	PasswordHash          string
	GeneralAdmin          bool
	ServiceSectorAdminIDs []string
	UnitAdminIDs          []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ReservationFilter narrows reservation queries.
type ReservationFilter struct {
	// ReservationUnitIDs restricts to reservations touching any of the units.
	ReservationUnitIDs []string
	// UserID restricts to a single owner.
	UserID string
	// ActiveOnly drops cancelled and denied reservations.
	ActiveOnly bool
	// EndsAfter drops reservations ending at or before the given instant.
	EndsAfter *time.Time
	// BeginsBefore drops reservations beginning at or after the given instant.
	BeginsBefore *time.Time
}
