package application

import (
	"context"
	"time"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/booking"
	"github.com/example/varaamo/internal/opening"
	"github.com/example/varaamo/internal/persistence"
)

type reservationRepoStub struct {
	reservations []booking.Reservation
	createErr    error
	updateErr    error
}

func (s *reservationRepoStub) CreateReservation(ctx context.Context, reservation booking.Reservation) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.reservations = append(s.reservations, reservation)
	return nil
}

func (s *reservationRepoStub) UpdateReservation(ctx context.Context, reservation booking.Reservation) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.reservations {
		if s.reservations[i].ID == reservation.ID {
			s.reservations[i] = reservation
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *reservationRepoStub) GetReservation(ctx context.Context, id string) (booking.Reservation, error) {
	for _, reservation := range s.reservations {
		if reservation.ID == id {
			return reservation, nil
		}
	}
	return booking.Reservation{}, persistence.ErrNotFound
}

func (s *reservationRepoStub) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]booking.Reservation, error) {
	out := make([]booking.Reservation, 0, len(s.reservations))
	for _, reservation := range s.reservations {
		if filter.UserID != "" && reservation.UserID != filter.UserID {
			continue
		}
		if filter.ActiveOnly && !reservation.BlocksSlot() {
			continue
		}
		if len(filter.ReservationUnitIDs) > 0 && !touchesAny(reservation.ReservationUnitIDs, filter.ReservationUnitIDs) {
			continue
		}
		if filter.EndsAfter != nil && !reservation.End.After(*filter.EndsAfter) {
			continue
		}
		if filter.BeginsBefore != nil && !reservation.Begin.Before(*filter.BeginsBefore) {
			continue
		}
		out = append(out, reservation)
	}
	return out, nil
}

func (s *reservationRepoStub) CountActiveReservations(ctx context.Context, userID, reservationUnitID string) (int, error) {
	count := 0
	for _, reservation := range s.reservations {
		if reservation.UserID != userID || !reservation.BlocksSlot() {
			continue
		}
		if touchesAny(reservation.ReservationUnitIDs, []string{reservationUnitID}) {
			count++
		}
	}
	return count, nil
}

func touchesAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

type catalogRepoStub struct {
	units     map[string]booking.ReservationUnit
	spaces    []booking.Space
	resources []booking.Resource
	orgUnits  map[string]booking.Unit
}

func newCatalogRepoStub() *catalogRepoStub {
	return &catalogRepoStub{
		units:    make(map[string]booking.ReservationUnit),
		orgUnits: make(map[string]booking.Unit),
	}
}

func (s *catalogRepoStub) CreateReservationUnit(ctx context.Context, unit booking.ReservationUnit) error {
	if _, exists := s.units[unit.ID]; exists {
		return persistence.ErrAlreadyExists
	}
	s.units[unit.ID] = unit
	return nil
}

func (s *catalogRepoStub) UpdateReservationUnit(ctx context.Context, unit booking.ReservationUnit) error {
	if _, exists := s.units[unit.ID]; !exists {
		return persistence.ErrNotFound
	}
	s.units[unit.ID] = unit
	return nil
}

func (s *catalogRepoStub) GetReservationUnit(ctx context.Context, id string) (booking.ReservationUnit, error) {
	unit, ok := s.units[id]
	if !ok {
		return booking.ReservationUnit{}, persistence.ErrNotFound
	}
	return unit, nil
}

func (s *catalogRepoStub) ListReservationUnits(ctx context.Context) ([]booking.ReservationUnit, error) {
	out := make([]booking.ReservationUnit, 0, len(s.units))
	for _, unit := range s.units {
		out = append(out, unit)
	}
	return out, nil
}

func (s *catalogRepoStub) CreateSpace(ctx context.Context, space booking.Space) error {
	s.spaces = append(s.spaces, space)
	return nil
}

func (s *catalogRepoStub) ListSpaces(ctx context.Context) ([]booking.Space, error) {
	return s.spaces, nil
}

func (s *catalogRepoStub) CreateResource(ctx context.Context, resource booking.Resource) error {
	s.resources = append(s.resources, resource)
	return nil
}

func (s *catalogRepoStub) ListResources(ctx context.Context) ([]booking.Resource, error) {
	return s.resources, nil
}

func (s *catalogRepoStub) CreateUnit(ctx context.Context, unit booking.Unit) error {
	if _, exists := s.orgUnits[unit.ID]; exists {
		return persistence.ErrAlreadyExists
	}
	s.orgUnits[unit.ID] = unit
	return nil
}

func (s *catalogRepoStub) GetUnit(ctx context.Context, id string) (booking.Unit, error) {
	unit, ok := s.orgUnits[id]
	if !ok {
		return booking.Unit{}, persistence.ErrNotFound
	}
	return unit, nil
}

type roundRepoStub struct {
	rounds       map[string]allocation.Round
	applications []allocation.Application
	results      map[string][]allocation.Result
}

func newRoundRepoStub() *roundRepoStub {
	return &roundRepoStub{
		rounds:  make(map[string]allocation.Round),
		results: make(map[string][]allocation.Result),
	}
}

func (s *roundRepoStub) CreateRound(ctx context.Context, round allocation.Round) error {
	if _, exists := s.rounds[round.ID]; exists {
		return persistence.ErrAlreadyExists
	}
	s.rounds[round.ID] = round
	return nil
}

func (s *roundRepoStub) UpdateRound(ctx context.Context, round allocation.Round) error {
	if _, exists := s.rounds[round.ID]; !exists {
		return persistence.ErrNotFound
	}
	s.rounds[round.ID] = round
	return nil
}

func (s *roundRepoStub) GetRound(ctx context.Context, id string) (allocation.Round, error) {
	round, ok := s.rounds[id]
	if !ok {
		return allocation.Round{}, persistence.ErrNotFound
	}
	return round, nil
}

func (s *roundRepoStub) ListRounds(ctx context.Context) ([]allocation.Round, error) {
	out := make([]allocation.Round, 0, len(s.rounds))
	for _, round := range s.rounds {
		out = append(out, round)
	}
	return out, nil
}

func (s *roundRepoStub) CreateApplication(ctx context.Context, app allocation.Application) error {
	s.applications = append(s.applications, app)
	return nil
}

func (s *roundRepoStub) ListApplications(ctx context.Context, roundID string) ([]allocation.Application, error) {
	out := make([]allocation.Application, 0, len(s.applications))
	for _, app := range s.applications {
		if app.RoundID == roundID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (s *roundRepoStub) ReplaceResults(ctx context.Context, roundID string, results []allocation.Result) error {
	s.results[roundID] = append([]allocation.Result(nil), results...)
	return nil
}

func (s *roundRepoStub) ListResults(ctx context.Context, roundID string) ([]allocation.Result, error) {
	return s.results[roundID], nil
}

type userRepoStub struct {
	users map[string]persistence.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]persistence.User)}
}

func (s *userRepoStub) CreateUser(ctx context.Context, user persistence.User) error {
	if _, exists := s.users[user.ID]; exists {
		return persistence.ErrAlreadyExists
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) UpdateUser(ctx context.Context, user persistence.User) error {
	if _, exists := s.users[user.ID]; !exists {
		return persistence.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userRepoStub) ListUsers(ctx context.Context) ([]persistence.User, error) {
	out := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

type openingProviderStub struct {
	spans map[string][]opening.TimeSpan
	err   error
}

func (s *openingProviderStub) OpenTimeSpans(ctx context.Context, reservationUnitID string, date time.Time) ([]opening.TimeSpan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.spans[reservationUnitID], nil
}

func openSpans(reservationUnitID string, start, end time.Time) map[string][]opening.TimeSpan {
	return map[string][]opening.TimeSpan{
		reservationUnitID: {{Start: start, End: end}},
	}
}
