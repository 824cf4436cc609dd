package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/example/varaamo/internal/booking"
	"github.com/example/varaamo/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository.
type ReservationRepository struct {
	store *Store
}

// NewReservationRepository wires the repository to the store.
func NewReservationRepository(store *Store) *ReservationRepository {
	return &ReservationRepository{store: store}
}

// CreateReservation inserts a reservation and its unit links.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation booking.Reservation) error {
	if reservation.ID == "" || !reservation.State.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO reservations (id, user_id, begin_time, end_time, buffer_before_minutes, buffer_after_minutes, state, price, sku, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			reservation.ID,
			reservation.UserID,
			formatTime(reservation.Begin),
			formatTime(reservation.End),
			minutes(reservation.BufferTimeBefore),
			minutes(reservation.BufferTimeAfter),
			string(reservation.State),
			reservation.Price,
			reservation.SKU,
			formatTime(reservation.CreatedAt),
			formatTime(reservation.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return insertReservationUnits(tx, reservation.ID, reservation.ReservationUnitIDs)
	})
}

// UpdateReservation rewrites a reservation row and its unit links.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation booking.Reservation) error {
	if reservation.ID == "" || !reservation.State.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE reservations
			SET user_id = ?, begin_time = ?, end_time = ?, buffer_before_minutes = ?, buffer_after_minutes = ?, state = ?, price = ?, sku = ?, updated_at = ?
			WHERE id = ?`,
			reservation.UserID,
			formatTime(reservation.Begin),
			formatTime(reservation.End),
			minutes(reservation.BufferTimeBefore),
			minutes(reservation.BufferTimeAfter),
			string(reservation.State),
			reservation.Price,
			reservation.SKU,
			formatTime(reservation.UpdatedAt),
			reservation.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := tx.Exec(`DELETE FROM reservation_reservation_units WHERE reservation_id = ?`, reservation.ID); err != nil {
			return mapError(err)
		}
		return insertReservationUnits(tx, reservation.ID, reservation.ReservationUnitIDs)
	})
}

// GetReservation loads a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (booking.Reservation, error) {
	if id == "" {
		return booking.Reservation{}, persistence.ErrNotFound
	}

	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, begin_time, end_time, buffer_before_minutes, buffer_after_minutes, state, price, sku, created_at, updated_at
		FROM reservations WHERE id = ?`, id)

	reservation, err := scanReservation(row)
	if err != nil {
		return booking.Reservation{}, mapError(err)
	}

	unitIDs, err := r.loadUnitIDs(ctx, id)
	if err != nil {
		return booking.Reservation{}, err
	}
	reservation.ReservationUnitIDs = unitIDs
	return reservation, nil
}

// ListReservations returns reservations matching the filter, ordered by begin
// time then ID.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]booking.Reservation, error) {
	query, args := buildReservationQuery(filter)

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := make([]booking.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, mapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range reservations {
		unitIDs, err := r.loadUnitIDs(ctx, reservations[i].ID)
		if err != nil {
			return nil, err
		}
		reservations[i].ReservationUnitIDs = unitIDs
	}
	return reservations, nil
}

// CountActiveReservations counts the user's non-terminal reservations on the unit.
func (r *ReservationRepository) CountActiveReservations(ctx context.Context, userID, reservationUnitID string) (int, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM reservations r
		JOIN reservation_reservation_units l ON l.reservation_id = r.id
		WHERE r.user_id = ? AND l.reservation_unit_id = ? AND r.state NOT IN (?, ?)`,
		userID, reservationUnitID, string(booking.StateCancelled), string(booking.StateDenied))

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func buildReservationQuery(filter persistence.ReservationFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT DISTINCT r.id, r.user_id, r.begin_time, r.end_time, r.buffer_before_minutes, r.buffer_after_minutes, r.state, r.price, r.sku, r.created_at, r.updated_at
		FROM reservations r`)

	args := make([]interface{}, 0, 8)
	conditions := make([]string, 0, 4)

	if len(filter.ReservationUnitIDs) > 0 {
		sb.WriteString(` JOIN reservation_reservation_units l ON l.reservation_id = r.id`)
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.ReservationUnitIDs)), ",")
		conditions = append(conditions, fmt.Sprintf("l.reservation_unit_id IN (%s)", placeholders))
		for _, id := range filter.ReservationUnitIDs {
			args = append(args, id)
		}
	}
	if filter.UserID != "" {
		conditions = append(conditions, "r.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "r.state NOT IN (?, ?)")
		args = append(args, string(booking.StateCancelled), string(booking.StateDenied))
	}
	if filter.EndsAfter != nil {
		conditions = append(conditions, "r.end_time > ?")
		args = append(args, formatTime(*filter.EndsAfter))
	}
	if filter.BeginsBefore != nil {
		conditions = append(conditions, "r.begin_time < ?")
		args = append(args, formatTime(*filter.BeginsBefore))
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY r.begin_time, r.id")

	return sb.String(), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (booking.Reservation, error) {
	var reservation booking.Reservation
	var beginRaw, endRaw, createdRaw, updatedRaw, state string
	var bufferBefore, bufferAfter int64

	err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&beginRaw,
		&endRaw,
		&bufferBefore,
		&bufferAfter,
		&state,
		&reservation.Price,
		&reservation.SKU,
		&createdRaw,
		&updatedRaw,
	)
	if err != nil {
		return booking.Reservation{}, err
	}

	if reservation.Begin, err = parseTime(beginRaw); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.End, err = parseTime(endRaw); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTime(createdRaw); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return booking.Reservation{}, err
	}
	reservation.BufferTimeBefore = duration(bufferBefore)
	reservation.BufferTimeAfter = duration(bufferAfter)
	reservation.State = booking.State(state)
	return reservation, nil
}

func insertReservationUnits(tx *sql.Tx, reservationID string, unitIDs []string) error {
	for _, unitID := range unitIDs {
		if _, err := tx.Exec(`
			INSERT INTO reservation_reservation_units (reservation_id, reservation_unit_id)
			VALUES (?, ?)`, reservationID, unitID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *ReservationRepository) loadUnitIDs(ctx context.Context, reservationID string) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT reservation_unit_id FROM reservation_reservation_units WHERE reservation_id = ?`, reservationID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	ids := make([]string, 0, 2)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	sort.Strings(ids)
	return ids, nil
}
