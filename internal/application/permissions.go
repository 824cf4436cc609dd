package application

import "github.com/example/varaamo/internal/booking"

// PermissionConfig toggles permission enforcement. Disabling checks is meant
// for local development only.
type PermissionConfig struct {
	Disabled bool
}

// canManageUnit reports whether the principal may mutate catalog entities and
// reservations under the given organizational unit. A general admin may
// mutate anything; a unit admin is scoped to explicit unit grants; a service
// sector admin covers every unit inside the sector.
func (c PermissionConfig) canManageUnit(principal Principal, unit booking.Unit) bool {
	if c.Disabled {
		return true
	}
	if principal.GeneralAdmin {
		return true
	}
	for _, id := range principal.UnitAdminIDs {
		if id == unit.ID {
			return true
		}
	}
	for _, sectorID := range principal.ServiceSectorAdminIDs {
		for _, unitSector := range unit.ServiceSectorIDs {
			if sectorID == unitSector {
				return true
			}
		}
	}
	return false
}

// canManageServiceSector reports whether the principal may manage resources
// scoped to a service sector, such as application rounds.
func (c PermissionConfig) canManageServiceSector(principal Principal, serviceSectorID string) bool {
	if c.Disabled {
		return true
	}
	if principal.GeneralAdmin {
		return true
	}
	for _, id := range principal.ServiceSectorAdminIDs {
		if id == serviceSectorID {
			return true
		}
	}
	return false
}

// canActOnReservation reports whether the principal may perform owner-level
// operations on the reservation: the owner themselves, or an admin over any
// of the reservation's units.
func (c PermissionConfig) canActOnReservation(principal Principal, ownerID string, units []booking.Unit) bool {
	if c.Disabled {
		return true
	}
	if principal.UserID != "" && principal.UserID == ownerID {
		return true
	}
	for _, unit := range units {
		if c.canManageUnit(principal, unit) {
			return true
		}
	}
	return false
}

// canHandleReservation reports whether the principal may approve or deny
// reservations on the given units. Handling is a staff operation; ownership
// alone does not grant it.
func (c PermissionConfig) canHandleReservation(principal Principal, units []booking.Unit) bool {
	if c.Disabled {
		return true
	}
	for _, unit := range units {
		if c.canManageUnit(principal, unit) {
			return true
		}
	}
	return false
}
