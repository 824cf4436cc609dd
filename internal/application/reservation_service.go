package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/booking"
	"github.com/example/varaamo/internal/opening"
	"github.com/example/varaamo/internal/persistence"
	"github.com/example/varaamo/internal/pricing"
	"github.com/example/varaamo/internal/timeslot"
)

// ReservationService orchestrates validation, conflict detection, and
// persistence for reservation operations.
type ReservationService struct {
	reservations persistence.ReservationRepository
	catalog      persistence.CatalogRepository
	rounds       persistence.RoundRepository
	openHours    opening.Provider
	permissions  PermissionConfig
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(reservations persistence.ReservationRepository, catalog persistence.CatalogRepository, rounds persistence.RoundRepository, openHours opening.Provider, permissions PermissionConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		catalog:      catalog,
		rounds:       rounds,
		openHours:    openHours,
		permissions:  permissions,
		idGenerator:  idGenerator,
		now:          now,
		logger:       logger,
	}
}

func (s *ReservationService) operationLogger(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation validates the requested slot against every rule the
// catalog imposes and persists it in CREATED state.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (booking.Reservation, error) {
	if s == nil {
		return booking.Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	logger := s.operationLogger(ctx, "CreateReservation")

	input := params.Input
	if input.UserID == "" {
		input.UserID = params.Principal.UserID
	}

	if err := validateReservationCore(input); err != nil {
		return booking.Reservation{}, err
	}

	now := s.now()
	if input.Begin.Before(now) {
		return booking.Reservation{}, coded(CodeBeginInPast, "Reservation cannot begin in the past")
	}

	units, err := s.loadTargetUnits(ctx, input.ReservationUnitIDs)
	if err != nil {
		return booking.Reservation{}, err
	}
	orgUnits, err := s.loadOrgUnitsFor(ctx, units)
	if err != nil {
		return booking.Reservation{}, err
	}

	if input.UserID != params.Principal.UserID {
		if err := s.requireUnitAdmin(params.Principal, orgUnits); err != nil {
			return booking.Reservation{}, err
		}
	}

	sku, err := resolveSKU(units)
	if err != nil {
		return booking.Reservation{}, err
	}

	canHandle := s.permissions.canHandleReservation(params.Principal, orgUnits)
	if err := s.validateUnitRules(ctx, units, input, now, nil, canHandle); err != nil {
		return booking.Reservation{}, err
	}

	if err := s.checkConflicts(ctx, units, input, ""); err != nil {
		return booking.Reservation{}, err
	}

	price, err := totalPrice(units, input.End.Sub(input.Begin))
	if err != nil {
		return booking.Reservation{}, err
	}

	reservation := booking.Reservation{
		ID:                 s.idGenerator(),
		UserID:             input.UserID,
		ReservationUnitIDs: append([]string(nil), input.ReservationUnitIDs...),
		Begin:              input.Begin,
		End:                input.End,
		BufferTimeBefore:   input.BufferTimeBefore,
		BufferTimeAfter:    input.BufferTimeAfter,
		State:              booking.StateCreated,
		Price:              price,
		SKU:                sku,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.reservations.CreateReservation(ctx, reservation); err != nil {
		return booking.Reservation{}, mapRepoError(err)
	}

	logger.With("reservation_id", reservation.ID, "user_id", reservation.UserID).InfoContext(ctx, "reservation created")
	return reservation, nil
}

// UpdateReservation moves an existing reservation to a new interval, running
// the full validation pipeline with the reservation excluded from its own
// conflict set.
func (s *ReservationService) UpdateReservation(ctx context.Context, params UpdateReservationParams) (booking.Reservation, error) {
	if s == nil {
		return booking.Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	logger := s.operationLogger(ctx, "UpdateReservation", "reservation_id", params.ReservationID)

	existing, err := s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		return booking.Reservation{}, mapRepoError(err)
	}

	orgUnits, err := s.loadOrgUnits(ctx, existing.ReservationUnitIDs)
	if err != nil {
		return booking.Reservation{}, err
	}
	if !s.permissions.canActOnReservation(params.Principal, existing.UserID, orgUnits) {
		return booking.Reservation{}, noPermission()
	}

	if !existing.State.CanModify() {
		return booking.Reservation{}, coded(CodeModificationNotAllowed, "Reservation cannot be changed anymore")
	}

	input := params.Input
	if input.UserID == "" {
		input.UserID = existing.UserID
	}
	if len(input.ReservationUnitIDs) == 0 {
		input.ReservationUnitIDs = existing.ReservationUnitIDs
	}

	if err := validateReservationCore(input); err != nil {
		return booking.Reservation{}, err
	}

	now := s.now()
	if input.Begin.Before(now) {
		return booking.Reservation{}, coded(CodeBeginInPast, "Reservation cannot begin in the past")
	}

	units, err := s.loadTargetUnits(ctx, input.ReservationUnitIDs)
	if err != nil {
		return booking.Reservation{}, err
	}
	targetOrgUnits, err := s.loadOrgUnitsFor(ctx, units)
	if err != nil {
		return booking.Reservation{}, err
	}

	sku, err := resolveSKU(units)
	if err != nil {
		return booking.Reservation{}, err
	}

	canHandle := s.permissions.canHandleReservation(params.Principal, targetOrgUnits)
	if err := s.validateUnitRules(ctx, units, input, now, &existing, canHandle); err != nil {
		return booking.Reservation{}, err
	}

	if err := s.checkConflicts(ctx, units, input, existing.ID); err != nil {
		return booking.Reservation{}, err
	}

	price, err := totalPrice(units, input.End.Sub(input.Begin))
	if err != nil {
		return booking.Reservation{}, err
	}

	updated := existing
	updated.UserID = input.UserID
	updated.ReservationUnitIDs = append([]string(nil), input.ReservationUnitIDs...)
	updated.Begin = input.Begin
	updated.End = input.End
	updated.BufferTimeBefore = input.BufferTimeBefore
	updated.BufferTimeAfter = input.BufferTimeAfter
	updated.Price = price
	updated.SKU = sku
	updated.UpdatedAt = now

	if err := s.reservations.UpdateReservation(ctx, updated); err != nil {
		return booking.Reservation{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "reservation updated")
	return updated, nil
}

// ConfirmReservation moves a reservation out of CREATED. Units demanding
// manual handling route it to REQUIRES_HANDLING instead of CONFIRMED.
func (s *ReservationService) ConfirmReservation(ctx context.Context, principal Principal, reservationID string) (booking.Reservation, error) {
	return s.transition(ctx, principal, reservationID, "ConfirmReservation", func(reservation booking.Reservation, units []booking.ReservationUnit) (booking.State, error) {
		if !reservation.State.CanConfirm() {
			return "", coded(CodeStateChangeNotAllowed, "Reservation state cannot be changed from %s", reservation.State)
		}
		for _, unit := range units {
			if unit.RequireReservationHandling {
				return booking.StateRequiresHandling, nil
			}
		}
		return booking.StateConfirmed, nil
	}, ownerOrAdmin)
}

// ApproveReservation confirms a reservation waiting for manual handling.
func (s *ReservationService) ApproveReservation(ctx context.Context, principal Principal, reservationID string) (booking.Reservation, error) {
	return s.transition(ctx, principal, reservationID, "ApproveReservation", func(reservation booking.Reservation, _ []booking.ReservationUnit) (booking.State, error) {
		if !reservation.State.CanApprove() {
			return "", coded(CodeApprovingNotAllowed, "Only reservations in REQUIRES_HANDLING state can be approved")
		}
		return booking.StateConfirmed, nil
	}, adminOnly)
}

// DenyReservation rejects a reservation waiting for manual handling, freeing
// its slot.
func (s *ReservationService) DenyReservation(ctx context.Context, principal Principal, reservationID string) (booking.Reservation, error) {
	return s.transition(ctx, principal, reservationID, "DenyReservation", func(reservation booking.Reservation, _ []booking.ReservationUnit) (booking.State, error) {
		if !reservation.State.CanDeny() {
			return "", coded(CodeDenyingNotAllowed, "Only reservations in REQUIRES_HANDLING state can be denied")
		}
		return booking.StateDenied, nil
	}, adminOnly)
}

// CancelReservation cancels a reservation that has not started yet, freeing
// its slot.
func (s *ReservationService) CancelReservation(ctx context.Context, principal Principal, reservationID string) (booking.Reservation, error) {
	return s.transition(ctx, principal, reservationID, "CancelReservation", func(reservation booking.Reservation, _ []booking.ReservationUnit) (booking.State, error) {
		if !reservation.State.CanCancel() {
			return "", coded(CodeCancellationNotAllowed, "Reservation cannot be cancelled from state %s", reservation.State)
		}
		if !reservation.Begin.After(s.now()) {
			return "", coded(CodeCancellationNotAllowed, "Reservation cannot be cancelled after it has begun")
		}
		return booking.StateCancelled, nil
	}, ownerOrAdmin)
}

// RequireHandling sends a reservation back to the manual handling queue.
func (s *ReservationService) RequireHandling(ctx context.Context, principal Principal, reservationID string) (booking.Reservation, error) {
	return s.transition(ctx, principal, reservationID, "RequireHandling", func(reservation booking.Reservation, _ []booking.ReservationUnit) (booking.State, error) {
		if !reservation.State.CanRequireHandling() {
			return "", coded(CodeStateChangeNotAllowed, "Reservation state cannot be changed from %s", reservation.State)
		}
		return booking.StateRequiresHandling, nil
	}, adminOnly)
}

// GetReservation fetches a single reservation visible to the principal.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, reservationID string) (booking.Reservation, error) {
	if s == nil {
		return booking.Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	reservation, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return booking.Reservation{}, mapRepoError(err)
	}
	orgUnits, err := s.loadOrgUnits(ctx, reservation.ReservationUnitIDs)
	if err != nil {
		return booking.Reservation{}, err
	}
	if !s.permissions.canActOnReservation(principal, reservation.UserID, orgUnits) {
		return booking.Reservation{}, noPermission()
	}
	return reservation, nil
}

// ListReservations enumerates reservations matching the filter. Principals
// without admin grants only see their own.
func (s *ReservationService) ListReservations(ctx context.Context, principal Principal, filter persistence.ReservationFilter) ([]booking.Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if !principal.GeneralAdmin && len(principal.ServiceSectorAdminIDs) == 0 && len(principal.UnitAdminIDs) == 0 && !s.permissions.Disabled {
		filter.UserID = principal.UserID
	}
	reservations, err := s.reservations.ListReservations(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return reservations, nil
}

type permissionMode int

const (
	ownerOrAdmin permissionMode = iota
	adminOnly
)

func (s *ReservationService) transition(ctx context.Context, principal Principal, reservationID, operation string, decide func(booking.Reservation, []booking.ReservationUnit) (booking.State, error), mode permissionMode) (booking.Reservation, error) {
	if s == nil {
		return booking.Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	logger := s.operationLogger(ctx, operation, "reservation_id", reservationID)

	reservation, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return booking.Reservation{}, mapRepoError(err)
	}

	units, err := s.loadTargetUnits(ctx, reservation.ReservationUnitIDs)
	if err != nil {
		return booking.Reservation{}, err
	}
	orgUnits, err := s.loadOrgUnits(ctx, reservation.ReservationUnitIDs)
	if err != nil {
		return booking.Reservation{}, err
	}

	allowed := false
	switch mode {
	case ownerOrAdmin:
		allowed = s.permissions.canActOnReservation(principal, reservation.UserID, orgUnits)
	case adminOnly:
		allowed = s.permissions.canHandleReservation(principal, orgUnits)
	}
	if !allowed {
		return booking.Reservation{}, noPermission()
	}

	next, err := decide(reservation, units)
	if err != nil {
		logger.With("from", string(reservation.State)).ErrorContext(ctx, "state change rejected", "error", err, "error_kind", ErrorKind(err))
		return booking.Reservation{}, err
	}

	reservation.State = next
	reservation.UpdatedAt = s.now()
	if err := s.reservations.UpdateReservation(ctx, reservation); err != nil {
		return booking.Reservation{}, mapRepoError(err)
	}

	logger.With("state", string(next)).InfoContext(ctx, "reservation state changed")
	return reservation, nil
}

func (s *ReservationService) requireUnitAdmin(principal Principal, orgUnits []booking.Unit) error {
	for _, unit := range orgUnits {
		if !s.permissions.canManageUnit(principal, unit) {
			return noPermission()
		}
	}
	return nil
}

func (s *ReservationService) loadTargetUnits(ctx context.Context, ids []string) ([]booking.ReservationUnit, error) {
	units := make([]booking.ReservationUnit, 0, len(ids))
	for _, id := range ids {
		unit, err := s.catalog.GetReservationUnit(ctx, id)
		if err != nil {
			return nil, mapRepoError(err)
		}
		units = append(units, unit)
	}
	return units, nil
}

func (s *ReservationService) loadOrgUnits(ctx context.Context, reservationUnitIDs []string) ([]booking.Unit, error) {
	units, err := s.loadTargetUnits(ctx, reservationUnitIDs)
	if err != nil {
		return nil, err
	}
	return s.loadOrgUnitsFor(ctx, units)
}

func (s *ReservationService) loadOrgUnitsFor(ctx context.Context, units []booking.ReservationUnit) ([]booking.Unit, error) {
	seen := make(map[string]struct{}, len(units))
	orgUnits := make([]booking.Unit, 0, len(units))
	for _, unit := range units {
		if unit.UnitID == "" {
			continue
		}
		if _, ok := seen[unit.UnitID]; ok {
			continue
		}
		seen[unit.UnitID] = struct{}{}
		orgUnit, err := s.catalog.GetUnit(ctx, unit.UnitID)
		if err != nil {
			return nil, mapRepoError(err)
		}
		orgUnits = append(orgUnits, orgUnit)
	}
	return orgUnits, nil
}

// validateUnitRules runs every per-unit booking rule. Any failing unit vetoes
// the whole reservation.
func (s *ReservationService) validateUnitRules(ctx context.Context, units []booking.ReservationUnit, input ReservationInput, now time.Time, existing *booking.Reservation, openRoundExempt bool) error {
	duration := input.End.Sub(input.Begin)

	var openRounds []allocation.Round
	if !openRoundExempt {
		var err error
		openRounds, err = s.openRounds(ctx, now)
		if err != nil {
			return err
		}
	}

	for _, unit := range units {
		window := opening.Window{
			ReservationBegins: unit.ReservationBegins,
			ReservationEnds:   unit.ReservationEnds,
			MinDaysBefore:     unit.ReservationsMinDaysBefore,
			MaxDaysBefore:     unit.ReservationsMaxDaysBefore,
		}
		if !window.WithinReservableWindow(now) {
			return coded(CodeUnitNotReservable, "Reservation unit %s is not reservable", unit.ID)
		}
		if !window.WithinDaysBeforeBounds(now, input.Begin) {
			return coded(CodeNotWithinAllowedTimeRange, "Reservation time is not within the allowed time range for unit %s", unit.ID)
		}
		if !unit.AllowReservationsWithoutOpeningHours && !unit.StartInterval.Matches(input.Begin) {
			return coded(CodeTimeDoesNotMatchInterval, "Reservation begin time does not match the allowed interval of %d minutes", int(unit.StartInterval))
		}
		if unit.MinReservationDuration > 0 && duration < unit.MinReservationDuration {
			return coded(CodeMinDurationNotExceeded, "Reservation duration is shorter than the minimum of unit %s", unit.ID)
		}
		if unit.MaxReservationDuration > 0 && duration > unit.MaxReservationDuration {
			return coded(CodeMaxDurationExceeded, "Reservation duration exceeds the maximum of unit %s", unit.ID)
		}

		for _, round := range openRounds {
			if !round.HasReservationUnit(unit.ID) {
				continue
			}
			period := timeslot.Interval{Begin: round.ReservationPeriodBegin, End: round.ReservationPeriodEnd}
			if period.Intersects(timeslot.Interval{Begin: input.Begin, End: input.End}) {
				return coded(CodeUnitInOpenRound, "Reservation unit %s is in an open application round", unit.ID)
			}
		}

		if !unit.AllowReservationsWithoutOpeningHours {
			if err := s.checkOpeningHours(ctx, unit, input); err != nil {
				return err
			}
		}

		if unit.MaxReservationsPerUser > 0 {
			count, err := s.reservations.CountActiveReservations(ctx, input.UserID, unit.ID)
			if err != nil {
				return mapRepoError(err)
			}
			// Revalidating an existing reservation must not count itself, but
			// only on units its current row already occupies.
			if existing != nil && existing.UserID == input.UserID && existing.BlocksSlot() && existing.LinksUnit(unit.ID) {
				count--
			}
			if count >= unit.MaxReservationsPerUser {
				return coded(CodeMaxActiveReservationsReached, "Maximum number of active reservations exceeded for unit %s", unit.ID)
			}
		}
	}
	return nil
}

func (s *ReservationService) openRounds(ctx context.Context, now time.Time) ([]allocation.Round, error) {
	if s.rounds == nil {
		return nil, nil
	}
	rounds, err := s.rounds.ListRounds(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	open := rounds[:0]
	for _, round := range rounds {
		if round.Open(now) {
			open = append(open, round)
		}
	}
	return open, nil
}

// checkOpeningHours requires the candidate interval to fall entirely inside a
// published open span of the unit.
func (s *ReservationService) checkOpeningHours(ctx context.Context, unit booking.ReservationUnit, input ReservationInput) error {
	if s.openHours == nil {
		return coded(CodeUnitNotOpen, "Reservation unit %s has no opening hours", unit.ID)
	}

	spans := make([]opening.TimeSpan, 0, 4)
	for date := dateOf(input.Begin); !date.After(dateOf(input.End)); date = date.AddDate(0, 0, 1) {
		daySpans, err := s.openHours.OpenTimeSpans(ctx, unit.ID, date)
		if err != nil {
			return coded(CodeExternalServiceError, "Opening hours could not be fetched for unit %s", unit.ID)
		}
		spans = append(spans, daySpans...)
	}

	if !opening.IsOpenWithin(spans, timeslot.Interval{Begin: input.Begin, End: input.End}) {
		return coded(CodeUnitNotOpen, "Reservation unit %s is not open within the requested time", unit.ID)
	}
	return nil
}

// checkConflicts validates the candidate against every reservation in the
// target units' physical families, with buffers applied on both sides.
func (s *ReservationService) checkConflicts(ctx context.Context, targets []booking.ReservationUnit, input ReservationInput, excludeReservationID string) error {
	allUnits, err := s.catalog.ListReservationUnits(ctx)
	if err != nil {
		return mapRepoError(err)
	}
	spaces, err := s.catalog.ListSpaces(ctx)
	if err != nil {
		return mapRepoError(err)
	}
	hierarchy := booking.NewSpaceHierarchy(spaces)

	family := make(map[string]struct{})
	for _, target := range targets {
		for _, id := range booking.PhysicalFamily(allUnits, hierarchy, target) {
			family[id] = struct{}{}
		}
	}
	familyIDs := make([]string, 0, len(family))
	for id := range family {
		familyIDs = append(familyIDs, id)
	}

	existing, err := s.reservations.ListReservations(ctx, persistence.ReservationFilter{
		ReservationUnitIDs: familyIDs,
		ActiveOnly:         true,
	})
	if err != nil {
		return mapRepoError(err)
	}

	unitsByID := make(map[string]booking.ReservationUnit, len(allUnits))
	for _, unit := range allUnits {
		unitsByID[unit.ID] = unit
	}

	slots := make([]timeslot.Slot, 0, len(existing))
	for _, reservation := range existing {
		if !reservation.BlocksSlot() {
			continue
		}
		before := reservation.BufferTimeBefore
		after := reservation.BufferTimeAfter
		for _, unitID := range reservation.ReservationUnitIDs {
			unit, ok := unitsByID[unitID]
			if !ok {
				continue
			}
			before = maxDuration(before, unit.BufferTimeBefore)
			after = maxDuration(after, unit.BufferTimeAfter)
		}
		slots = append(slots, timeslot.Slot{
			ReservationID: reservation.ID,
			Interval:      timeslot.Interval{Begin: reservation.Begin, End: reservation.End},
			BufferBefore:  before,
			BufferAfter:   after,
		})
	}

	candidateBefore := input.BufferTimeBefore
	candidateAfter := input.BufferTimeAfter
	for _, target := range targets {
		candidateBefore = maxDuration(candidateBefore, target.BufferTimeBefore)
		candidateAfter = maxDuration(candidateAfter, target.BufferTimeAfter)
	}

	conflict := timeslot.DetectConflict(slots, timeslot.Candidate{
		Interval:             timeslot.Interval{Begin: input.Begin, End: input.End},
		BufferBefore:         candidateBefore,
		BufferAfter:          candidateAfter,
		ExcludeReservationID: excludeReservationID,
	})
	if conflict == nil {
		return nil
	}
	if conflict.Kind == timeslot.ConflictDirect {
		return coded(CodeOverlappingReservations, "Overlapping reservations are not allowed")
	}
	return coded(CodeReservationOverlap, "Reservation overlap with buffer time of reservation %s", conflict.WithReservationID)
}

func validateReservationCore(input ReservationInput) error {
	vErr := &ValidationError{}

	if input.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	if len(input.ReservationUnitIDs) == 0 {
		vErr.add("reservation_units", "at least one reservation unit is required")
	}
	if input.Begin.IsZero() {
		vErr.add("begin", "begin is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Begin.IsZero() && !input.End.IsZero() && !input.Begin.Before(input.End) {
		vErr.add("time", "begin must be before end")
	}
	if input.BufferTimeBefore < 0 || input.BufferTimeAfter < 0 {
		vErr.add("buffers", "buffer times must not be negative")
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// resolveSKU requires every priced unit in the reservation to agree on one
// SKU.
func resolveSKU(units []booking.ReservationUnit) (string, error) {
	sku := ""
	for _, unit := range units {
		if unit.SKU == "" {
			continue
		}
		if sku == "" {
			sku = unit.SKU
			continue
		}
		if unit.SKU != sku {
			return "", coded(CodeAmbiguousSKU, "An ambiguous SKU cannot be resolved for a given reservation")
		}
	}
	return sku, nil
}

// totalPrice sums the highest-price estimate of every unit over the duration.
func totalPrice(units []booking.ReservationUnit, duration time.Duration) (float64, error) {
	total := 0.0
	for _, unit := range units {
		priceRange, err := pricing.PriceRange(unit.Pricing, duration)
		if err != nil {
			return 0, err
		}
		total += priceRange.Highest
	}
	return total, nil
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrAlreadyExists) {
		vErr := &ValidationError{}
		vErr.add("id", "record already exists")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("input", "related records are missing or invalid")
		return vErr
	}
	return err
}
