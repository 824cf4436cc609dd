package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/persistence"
	"github.com/example/varaamo/internal/recurring"
)

// RoundService manages application rounds: their lifecycle, submitted
// applications, and allocation runs.
type RoundService struct {
	rounds      persistence.RoundRepository
	catalog     persistence.CatalogRepository
	permissions PermissionConfig
	expander    *recurring.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoundService wires dependencies for application round operations.
func NewRoundService(rounds persistence.RoundRepository, catalog persistence.CatalogRepository, permissions PermissionConfig, expander *recurring.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoundService {
	if expander == nil {
		expander = recurring.NewEngine(nil)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoundService{
		rounds:      rounds,
		catalog:     catalog,
		permissions: permissions,
		expander:    expander,
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

func (s *RoundService) operationLogger(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoundService", operation, attrs...)
}

// CreateRound validates periods and basket invariants before persisting a new
// round in DRAFT state.
func (s *RoundService) CreateRound(ctx context.Context, params CreateRoundParams) (allocation.Round, error) {
	if s == nil {
		return allocation.Round{}, fmt.Errorf("RoundService is nil")
	}
	logger := s.operationLogger(ctx, "CreateRound")

	input := params.Input
	if !s.permissions.canManageServiceSector(params.Principal, input.ServiceSectorID) {
		return allocation.Round{}, noPermission()
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.ServiceSectorID == "" {
		vErr.add("service_sector_id", "service sector is required")
	}
	if len(input.ReservationUnitIDs) == 0 {
		vErr.add("reservation_units", "at least one reservation unit is required")
	}
	if vErr.HasErrors() {
		return allocation.Round{}, vErr
	}

	for _, unitID := range input.ReservationUnitIDs {
		if _, err := s.catalog.GetReservationUnit(ctx, unitID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("reservation_units", fmt.Sprintf("unknown reservation unit id: %s", unitID))
				return allocation.Round{}, vErr
			}
			return allocation.Round{}, mapRepoError(err)
		}
	}

	now := s.now()
	round := allocation.Round{
		ID:                     s.idGenerator(),
		Name:                   strings.TrimSpace(input.Name),
		ServiceSectorID:        input.ServiceSectorID,
		ReservationUnitIDs:     append([]string(nil), input.ReservationUnitIDs...),
		ApplicationPeriodBegin: input.ApplicationPeriodBegin,
		ApplicationPeriodEnd:   input.ApplicationPeriodEnd,
		ReservationPeriodBegin: input.ReservationPeriodBegin,
		ReservationPeriodEnd:   input.ReservationPeriodEnd,
		PublicDisplayBegin:     input.PublicDisplayBegin,
		PublicDisplayEnd:       input.PublicDisplayEnd,
		Status:                 allocation.RoundDraft,
		Baskets:                normalizeBaskets(input.Baskets, s.idGenerator),
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := allocation.ValidatePeriods(round); err != nil {
		vErr.add("periods", err.Error())
		return allocation.Round{}, vErr
	}
	if err := allocation.ValidateBaskets(round.Baskets); err != nil {
		vErr.add("baskets", err.Error())
		return allocation.Round{}, vErr
	}

	if err := s.rounds.CreateRound(ctx, round); err != nil {
		return allocation.Round{}, mapRepoError(err)
	}

	logger.With("round_id", round.ID).InfoContext(ctx, "application round created")
	return round, nil
}

// UpdateRoundStatus moves a round through its lifecycle. Approved rounds are
// frozen.
func (s *RoundService) UpdateRoundStatus(ctx context.Context, principal Principal, roundID string, next allocation.RoundStatus) (allocation.Round, error) {
	if s == nil {
		return allocation.Round{}, fmt.Errorf("RoundService is nil")
	}
	logger := s.operationLogger(ctx, "UpdateRoundStatus", "round_id", roundID)

	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		return allocation.Round{}, mapRepoError(err)
	}
	if !s.permissions.canManageServiceSector(principal, round.ServiceSectorID) {
		return allocation.Round{}, noPermission()
	}

	transitioned, err := allocation.Transition(round, next)
	if err != nil {
		if errors.Is(err, allocation.ErrStatusChangeNotAllowed) {
			return allocation.Round{}, coded(CodeStateChangeNotAllowed, "Round status cannot be changed from %s to %s", round.Status, next)
		}
		return allocation.Round{}, err
	}

	transitioned.UpdatedAt = s.now()
	if err := s.rounds.UpdateRound(ctx, transitioned); err != nil {
		return allocation.Round{}, mapRepoError(err)
	}

	logger.With("status", string(next)).InfoContext(ctx, "round status changed")
	return transitioned, nil
}

// SubmitApplication accepts an applicant's submission while the round's
// application period is open.
func (s *RoundService) SubmitApplication(ctx context.Context, principal Principal, app allocation.Application) (allocation.Application, error) {
	if s == nil {
		return allocation.Application{}, fmt.Errorf("RoundService is nil")
	}
	logger := s.operationLogger(ctx, "SubmitApplication", "round_id", app.RoundID)

	round, err := s.rounds.GetRound(ctx, app.RoundID)
	if err != nil {
		return allocation.Application{}, mapRepoError(err)
	}

	now := s.now()
	if !round.Open(now) {
		vErr := &ValidationError{}
		vErr.add("round", "application period is not open")
		return allocation.Application{}, vErr
	}

	if app.ApplicantID == "" {
		app.ApplicantID = principal.UserID
	}
	if err := validateApplication(app, round); err != nil {
		return allocation.Application{}, err
	}

	app.ID = s.idGenerator()
	app.ReceivedAt = now
	for i := range app.Events {
		app.Events[i].ID = s.idGenerator()
		for j := range app.Events[i].Schedules {
			app.Events[i].Schedules[j].ID = s.idGenerator()
		}
	}

	if err := s.rounds.CreateApplication(ctx, app); err != nil {
		return allocation.Application{}, mapRepoError(err)
	}

	logger.With("application_id", app.ID).InfoContext(ctx, "application submitted")
	return app, nil
}

// RunAllocation executes the allocator over all applications in the round and
// replaces previous results. The round must have finished review; a
// successful run moves it to ALLOCATED.
func (s *RoundService) RunAllocation(ctx context.Context, principal Principal, roundID string, availability allocation.UnitAvailability) ([]allocation.Result, error) {
	if s == nil {
		return nil, fmt.Errorf("RoundService is nil")
	}
	logger := s.operationLogger(ctx, "RunAllocation", "round_id", roundID)

	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !s.permissions.canManageServiceSector(principal, round.ServiceSectorID) {
		return nil, noPermission()
	}
	if !round.Status.CanTransitionTo(allocation.RoundAllocated) {
		return nil, coded(CodeStateChangeNotAllowed, "Round in status %s cannot be allocated", round.Status)
	}

	applications, err := s.rounds.ListApplications(ctx, roundID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	results := allocation.NewAllocator(round, availability).Run(applications)

	if err := s.rounds.ReplaceResults(ctx, roundID, results); err != nil {
		return nil, mapRepoError(err)
	}

	allocated, err := allocation.Transition(round, allocation.RoundAllocated)
	if err != nil {
		return nil, coded(CodeStateChangeNotAllowed, "Round in status %s cannot be allocated", round.Status)
	}
	allocated.UpdatedAt = s.now()
	if err := s.rounds.UpdateRound(ctx, allocated); err != nil {
		return nil, mapRepoError(err)
	}

	logger.With("results", len(results), "applications", len(applications)).InfoContext(ctx, "allocation completed")
	return results, nil
}

// ResultOccurrence is one dated instance of an allocated weekly slot on a
// reservation unit.
type ResultOccurrence struct {
	Result allocation.Result
	Begin  time.Time
	End    time.Time
}

// ExpandResults turns the round's weekly allocation results into dated
// occurrences across the reservation period.
func (s *RoundService) ExpandResults(ctx context.Context, roundID string) ([]ResultOccurrence, error) {
	if s == nil {
		return nil, fmt.Errorf("RoundService is nil")
	}

	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	results, err := s.rounds.ListResults(ctx, roundID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	occurrences := make([]ResultOccurrence, 0, len(results))
	for _, result := range results {
		slot := recurring.WeeklySlot{Weekday: result.Day, Begin: result.Begin, End: result.End}
		expanded, err := s.expander.Expand(slot, round.ReservationPeriodBegin, round.ReservationPeriodEnd)
		if err != nil {
			return nil, err
		}
		for _, occurrence := range expanded {
			occurrences = append(occurrences, ResultOccurrence{
				Result: result,
				Begin:  occurrence.Begin,
				End:    occurrence.End,
			})
		}
	}
	return occurrences, nil
}

// GetRound fetches a single application round.
func (s *RoundService) GetRound(ctx context.Context, roundID string) (allocation.Round, error) {
	if s == nil {
		return allocation.Round{}, fmt.Errorf("RoundService is nil")
	}
	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		return allocation.Round{}, mapRepoError(err)
	}
	return round, nil
}

// ListRounds enumerates all application rounds.
func (s *RoundService) ListRounds(ctx context.Context) ([]allocation.Round, error) {
	if s == nil {
		return nil, fmt.Errorf("RoundService is nil")
	}
	rounds, err := s.rounds.ListRounds(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return rounds, nil
}

// ListApplications returns the applications submitted to a round.
func (s *RoundService) ListApplications(ctx context.Context, roundID string) ([]allocation.Application, error) {
	if s == nil {
		return nil, fmt.Errorf("RoundService is nil")
	}
	applications, err := s.rounds.ListApplications(ctx, roundID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return applications, nil
}

// ListResults returns the stored allocation results of a round.
func (s *RoundService) ListResults(ctx context.Context, roundID string) ([]allocation.Result, error) {
	if s == nil {
		return nil, fmt.Errorf("RoundService is nil")
	}
	results, err := s.rounds.ListResults(ctx, roundID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return results, nil
}

func validateApplication(app allocation.Application, round allocation.Round) error {
	vErr := &ValidationError{}

	if app.ApplicantID == "" {
		vErr.add("applicant_id", "applicant is required")
	}
	if len(app.Events) == 0 {
		vErr.add("events", "at least one event is required")
	}

	for _, event := range app.Events {
		if len(event.Schedules) == 0 {
			vErr.add("schedules", "every event needs at least one schedule")
			break
		}
		for _, schedule := range event.Schedules {
			if schedule.End <= schedule.Begin {
				vErr.add("schedules", "schedule end must be after begin")
			}
			if schedule.Begin < 0 || schedule.End > 24*time.Hour {
				vErr.add("schedules", "schedule times must fall within a day")
			}
			if len(schedule.PreferredUnitIDs) == 0 {
				vErr.add("schedules", "every schedule needs at least one preferred unit")
			}
			for _, unitID := range schedule.PreferredUnitIDs {
				if !round.HasReservationUnit(unitID) {
					vErr.add("schedules", fmt.Sprintf("unit %s does not participate in the round", unitID))
				}
			}
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func normalizeBaskets(baskets []allocation.Basket, idGenerator func() string) []allocation.Basket {
	if len(baskets) == 0 {
		return nil
	}
	out := make([]allocation.Basket, len(baskets))
	copy(out, baskets)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = idGenerator()
		}
	}
	return out
}
