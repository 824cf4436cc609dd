package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/varaamo/internal/booking"
	"github.com/example/varaamo/internal/persistence"
)

// UnitService manages the bookable catalog: reservation units and the spaces,
// resources, and organizational units behind them.
type UnitService struct {
	catalog     persistence.CatalogRepository
	permissions PermissionConfig
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUnitService wires dependencies for catalog operations.
func NewUnitService(catalog persistence.CatalogRepository, permissions PermissionConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UnitService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UnitService{
		catalog:     catalog,
		permissions: permissions,
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

func (s *UnitService) operationLogger(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UnitService", operation, attrs...)
}

// CreateReservationUnit validates configuration invariants before persisting a
// new bookable unit.
func (s *UnitService) CreateReservationUnit(ctx context.Context, principal Principal, input ReservationUnitInput) (booking.ReservationUnit, error) {
	if s == nil {
		return booking.ReservationUnit{}, fmt.Errorf("UnitService is nil")
	}
	logger := s.operationLogger(ctx, "CreateReservationUnit")

	orgUnit, err := s.authorizeCatalogWrite(ctx, principal, input.UnitID)
	if err != nil {
		return booking.ReservationUnit{}, err
	}

	if err := validateReservationUnitCore(input); err != nil {
		return booking.ReservationUnit{}, err
	}

	if err := s.ensureTopologyExists(ctx, input.SpaceIDs, input.ResourceIDs); err != nil {
		return booking.ReservationUnit{}, err
	}

	now := s.now()
	unit := booking.ReservationUnit{
		ID:                                   s.idGenerator(),
		Name:                                 strings.TrimSpace(input.Name),
		UnitID:                               orgUnit.ID,
		SKU:                                  input.SKU,
		SpaceIDs:                             append([]string(nil), input.SpaceIDs...),
		ResourceIDs:                          append([]string(nil), input.ResourceIDs...),
		StartInterval:                        input.StartInterval,
		MinReservationDuration:               input.MinReservationDuration,
		MaxReservationDuration:               input.MaxReservationDuration,
		BufferTimeBefore:                     input.BufferTimeBefore,
		BufferTimeAfter:                      input.BufferTimeAfter,
		ReservationBegins:                    input.ReservationBegins,
		ReservationEnds:                      input.ReservationEnds,
		ReservationsMinDaysBefore:            input.ReservationsMinDaysBefore,
		ReservationsMaxDaysBefore:            input.ReservationsMaxDaysBefore,
		MaxReservationsPerUser:               input.MaxReservationsPerUser,
		AllowReservationsWithoutOpeningHours: input.AllowReservationsWithoutOpeningHours,
		RequireReservationHandling:           input.RequireReservationHandling,
		Pricing:                              input.Pricing,
		CreatedAt:                            now,
		UpdatedAt:                            now,
	}

	if err := s.catalog.CreateReservationUnit(ctx, unit); err != nil {
		return booking.ReservationUnit{}, mapRepoError(err)
	}

	logger.With("reservation_unit_id", unit.ID).InfoContext(ctx, "reservation unit created")
	return unit, nil
}

// UpdateReservationUnit replaces a unit's configuration. The owning
// organizational unit cannot be changed.
func (s *UnitService) UpdateReservationUnit(ctx context.Context, principal Principal, reservationUnitID string, input ReservationUnitInput) (booking.ReservationUnit, error) {
	if s == nil {
		return booking.ReservationUnit{}, fmt.Errorf("UnitService is nil")
	}
	logger := s.operationLogger(ctx, "UpdateReservationUnit", "reservation_unit_id", reservationUnitID)

	existing, err := s.catalog.GetReservationUnit(ctx, reservationUnitID)
	if err != nil {
		return booking.ReservationUnit{}, mapRepoError(err)
	}

	if _, err := s.authorizeCatalogWrite(ctx, principal, existing.UnitID); err != nil {
		return booking.ReservationUnit{}, err
	}

	vErr := &ValidationError{}
	if input.UnitID != "" && input.UnitID != existing.UnitID {
		vErr.add("unit_id", "owning unit cannot be changed")
	}
	if vErr.HasErrors() {
		return booking.ReservationUnit{}, vErr
	}

	if err := validateReservationUnitCore(input); err != nil {
		return booking.ReservationUnit{}, err
	}

	if err := s.ensureTopologyExists(ctx, input.SpaceIDs, input.ResourceIDs); err != nil {
		return booking.ReservationUnit{}, err
	}

	updated := existing
	updated.Name = strings.TrimSpace(input.Name)
	updated.SKU = input.SKU
	updated.SpaceIDs = append([]string(nil), input.SpaceIDs...)
	updated.ResourceIDs = append([]string(nil), input.ResourceIDs...)
	updated.StartInterval = input.StartInterval
	updated.MinReservationDuration = input.MinReservationDuration
	updated.MaxReservationDuration = input.MaxReservationDuration
	updated.BufferTimeBefore = input.BufferTimeBefore
	updated.BufferTimeAfter = input.BufferTimeAfter
	updated.ReservationBegins = input.ReservationBegins
	updated.ReservationEnds = input.ReservationEnds
	updated.ReservationsMinDaysBefore = input.ReservationsMinDaysBefore
	updated.ReservationsMaxDaysBefore = input.ReservationsMaxDaysBefore
	updated.MaxReservationsPerUser = input.MaxReservationsPerUser
	updated.AllowReservationsWithoutOpeningHours = input.AllowReservationsWithoutOpeningHours
	updated.RequireReservationHandling = input.RequireReservationHandling
	updated.Pricing = input.Pricing
	updated.UpdatedAt = s.now()

	if err := s.catalog.UpdateReservationUnit(ctx, updated); err != nil {
		return booking.ReservationUnit{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "reservation unit updated")
	return updated, nil
}

// GetReservationUnit fetches a single reservation unit.
func (s *UnitService) GetReservationUnit(ctx context.Context, reservationUnitID string) (booking.ReservationUnit, error) {
	if s == nil {
		return booking.ReservationUnit{}, fmt.Errorf("UnitService is nil")
	}
	unit, err := s.catalog.GetReservationUnit(ctx, reservationUnitID)
	if err != nil {
		return booking.ReservationUnit{}, mapRepoError(err)
	}
	return unit, nil
}

// ListReservationUnits enumerates the whole catalog. The catalog is public;
// no permission applies.
func (s *UnitService) ListReservationUnits(ctx context.Context) ([]booking.ReservationUnit, error) {
	if s == nil {
		return nil, fmt.Errorf("UnitService is nil")
	}
	units, err := s.catalog.ListReservationUnits(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return units, nil
}

// CreateSpace adds a space to the physical topology. A parent reference must
// point at an existing space.
func (s *UnitService) CreateSpace(ctx context.Context, principal Principal, space booking.Space) (booking.Space, error) {
	if s == nil {
		return booking.Space{}, fmt.Errorf("UnitService is nil")
	}
	logger := s.operationLogger(ctx, "CreateSpace")

	if _, err := s.authorizeCatalogWrite(ctx, principal, space.UnitID); err != nil {
		return booking.Space{}, err
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(space.Name) == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		return booking.Space{}, vErr
	}

	if space.ParentID != nil {
		spaces, err := s.catalog.ListSpaces(ctx)
		if err != nil {
			return booking.Space{}, mapRepoError(err)
		}
		if !spaceExists(spaces, *space.ParentID) {
			vErr.add("parent_id", "parent space does not exist")
			return booking.Space{}, vErr
		}
	}

	space.ID = s.idGenerator()
	space.Name = strings.TrimSpace(space.Name)
	if err := s.catalog.CreateSpace(ctx, space); err != nil {
		return booking.Space{}, mapRepoError(err)
	}

	logger.With("space_id", space.ID).InfoContext(ctx, "space created")
	return space, nil
}

// CreateResource adds a shared resource, optionally tied to a space.
func (s *UnitService) CreateResource(ctx context.Context, principal Principal, resource booking.Resource) (booking.Resource, error) {
	if s == nil {
		return booking.Resource{}, fmt.Errorf("UnitService is nil")
	}
	logger := s.operationLogger(ctx, "CreateResource")

	if !principal.GeneralAdmin && len(principal.UnitAdminIDs) == 0 && len(principal.ServiceSectorAdminIDs) == 0 && !s.permissions.Disabled {
		return booking.Resource{}, noPermission()
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(resource.Name) == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		return booking.Resource{}, vErr
	}

	if resource.SpaceID != nil {
		spaces, err := s.catalog.ListSpaces(ctx)
		if err != nil {
			return booking.Resource{}, mapRepoError(err)
		}
		if !spaceExists(spaces, *resource.SpaceID) {
			vErr.add("space_id", "space does not exist")
			return booking.Resource{}, vErr
		}
	}

	resource.ID = s.idGenerator()
	resource.Name = strings.TrimSpace(resource.Name)
	if err := s.catalog.CreateResource(ctx, resource); err != nil {
		return booking.Resource{}, mapRepoError(err)
	}

	logger.With("resource_id", resource.ID).InfoContext(ctx, "resource created")
	return resource, nil
}

// CreateUnit adds an organizational unit. Only general admins may extend the
// organization.
func (s *UnitService) CreateUnit(ctx context.Context, principal Principal, unit booking.Unit) (booking.Unit, error) {
	if s == nil {
		return booking.Unit{}, fmt.Errorf("UnitService is nil")
	}
	logger := s.operationLogger(ctx, "CreateUnit")

	if !principal.GeneralAdmin && !s.permissions.Disabled {
		return booking.Unit{}, noPermission()
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(unit.Name) == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		return booking.Unit{}, vErr
	}

	unit.ID = s.idGenerator()
	unit.Name = strings.TrimSpace(unit.Name)
	if err := s.catalog.CreateUnit(ctx, unit); err != nil {
		return booking.Unit{}, mapRepoError(err)
	}

	logger.With("unit_id", unit.ID).InfoContext(ctx, "unit created")
	return unit, nil
}

func (s *UnitService) authorizeCatalogWrite(ctx context.Context, principal Principal, unitID string) (booking.Unit, error) {
	if unitID == "" {
		vErr := &ValidationError{}
		vErr.add("unit_id", "owning unit is required")
		return booking.Unit{}, vErr
	}
	orgUnit, err := s.catalog.GetUnit(ctx, unitID)
	if err != nil {
		return booking.Unit{}, mapRepoError(err)
	}
	if !s.permissions.canManageUnit(principal, orgUnit) {
		return booking.Unit{}, noPermission()
	}
	return orgUnit, nil
}

func (s *UnitService) ensureTopologyExists(ctx context.Context, spaceIDs, resourceIDs []string) error {
	vErr := &ValidationError{}

	if len(spaceIDs) > 0 {
		spaces, err := s.catalog.ListSpaces(ctx)
		if err != nil {
			return mapRepoError(err)
		}
		for _, id := range spaceIDs {
			if !spaceExists(spaces, id) {
				vErr.add("spaces", fmt.Sprintf("unknown space id: %s", id))
				break
			}
		}
	}

	if len(resourceIDs) > 0 {
		resources, err := s.catalog.ListResources(ctx)
		if err != nil {
			return mapRepoError(err)
		}
		known := make(map[string]struct{}, len(resources))
		for _, resource := range resources {
			known[resource.ID] = struct{}{}
		}
		for _, id := range resourceIDs {
			if _, ok := known[id]; !ok {
				vErr.add("resources", fmt.Sprintf("unknown resource id: %s", id))
				break
			}
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validateReservationUnitCore(input ReservationUnitInput) error {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if !input.StartInterval.Valid() {
		vErr.add("start_interval", "start interval must be 15, 30, 60 or 90 minutes")
	}
	if input.MinReservationDuration < 0 || input.MaxReservationDuration < 0 {
		vErr.add("duration", "durations must not be negative")
	}
	if input.MinReservationDuration > 0 && input.MaxReservationDuration > 0 && input.MinReservationDuration > input.MaxReservationDuration {
		vErr.add("duration", "minimum duration must not exceed maximum duration")
	}
	if input.BufferTimeBefore < 0 || input.BufferTimeAfter < 0 {
		vErr.add("buffers", "buffer times must not be negative")
	}
	if input.ReservationsMinDaysBefore < 0 || input.ReservationsMaxDaysBefore < 0 {
		vErr.add("days_before", "days-before bounds must not be negative")
	}
	if input.ReservationsMinDaysBefore > 0 && input.ReservationsMaxDaysBefore > 0 && input.ReservationsMinDaysBefore > input.ReservationsMaxDaysBefore {
		vErr.add("days_before", "minimum days before must not exceed maximum")
	}
	if input.ReservationBegins != nil && input.ReservationEnds != nil && !input.ReservationBegins.Before(*input.ReservationEnds) {
		vErr.add("reservation_window", "reservation begins must precede reservation ends")
	}
	if input.MaxReservationsPerUser < 0 {
		vErr.add("max_reservations_per_user", "must not be negative")
	}
	if input.Pricing.LowestPrice < 0 || input.Pricing.HighestPrice < 0 {
		vErr.add("pricing", "prices must not be negative")
	}
	if input.Pricing.LowestPrice > input.Pricing.HighestPrice {
		vErr.add("pricing", "lowest price must not exceed highest price")
	}
	if input.Pricing.TaxPercentage < 0 {
		vErr.add("pricing", "tax percentage must not be negative")
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func spaceExists(spaces []booking.Space, id string) bool {
	for _, space := range spaces {
		if space.ID == id {
			return true
		}
	}
	return false
}
