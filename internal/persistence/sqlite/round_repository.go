package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/persistence"
)

// RoundRepository implements persistence.RoundRepository.
type RoundRepository struct {
	store *Store
}

// NewRoundRepository wires the repository to the store.
func NewRoundRepository(store *Store) *RoundRepository {
	return &RoundRepository{store: store}
}

// CreateRound inserts a round with its baskets and unit links.
func (r *RoundRepository) CreateRound(ctx context.Context, round allocation.Round) error {
	if round.ID == "" || !round.Status.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO application_rounds (
				id, name, service_sector_id,
				application_period_begin, application_period_end,
				reservation_period_begin, reservation_period_end,
				public_display_begin, public_display_end,
				status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			round.ID,
			round.Name,
			round.ServiceSectorID,
			formatTime(round.ApplicationPeriodBegin),
			formatTime(round.ApplicationPeriodEnd),
			formatTime(round.ReservationPeriodBegin),
			formatTime(round.ReservationPeriodEnd),
			formatTime(round.PublicDisplayBegin),
			formatTime(round.PublicDisplayEnd),
			string(round.Status),
			formatTime(round.CreatedAt),
			formatTime(round.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return r.insertRoundChildren(tx, round)
	})
}

// UpdateRound rewrites the round, its baskets, and its unit links.
func (r *RoundRepository) UpdateRound(ctx context.Context, round allocation.Round) error {
	if round.ID == "" || !round.Status.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE application_rounds
			SET name = ?, service_sector_id = ?,
				application_period_begin = ?, application_period_end = ?,
				reservation_period_begin = ?, reservation_period_end = ?,
				public_display_begin = ?, public_display_end = ?,
				status = ?, updated_at = ?
			WHERE id = ?`,
			round.Name,
			round.ServiceSectorID,
			formatTime(round.ApplicationPeriodBegin),
			formatTime(round.ApplicationPeriodEnd),
			formatTime(round.ReservationPeriodBegin),
			formatTime(round.ReservationPeriodEnd),
			formatTime(round.PublicDisplayBegin),
			formatTime(round.PublicDisplayEnd),
			string(round.Status),
			formatTime(round.UpdatedAt),
			round.ID,
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

		if _, err := tx.Exec(`DELETE FROM round_reservation_units WHERE round_id = ?`, round.ID); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(`DELETE FROM round_baskets WHERE round_id = ?`, round.ID); err != nil {
			return mapError(err)
		}
		return r.insertRoundChildren(tx, round)
	})
}

// GetRound loads a round with baskets and unit links.
func (r *RoundRepository) GetRound(ctx context.Context, id string) (allocation.Round, error) {
	if id == "" {
		return allocation.Round{}, persistence.ErrNotFound
	}
	row := r.store.db.QueryRowContext(ctx, roundSelect+` WHERE id = ?`, id)
	round, err := scanRound(row)
	if err != nil {
		return allocation.Round{}, mapError(err)
	}
	if err := r.attachRoundChildren(ctx, &round); err != nil {
		return allocation.Round{}, err
	}
	return round, nil
}

// ListRounds returns all rounds ordered by application period begin.
func (r *RoundRepository) ListRounds(ctx context.Context) ([]allocation.Round, error) {
	rows, err := r.store.db.QueryContext(ctx, roundSelect+` ORDER BY application_period_begin, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	rounds := make([]allocation.Round, 0)
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, mapError(err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range rounds {
		if err := r.attachRoundChildren(ctx, &rounds[i]); err != nil {
			return nil, err
		}
	}
	return rounds, nil
}

// CreateApplication inserts an application with its events and schedules.
func (r *RoundRepository) CreateApplication(ctx context.Context, app allocation.Application) error {
	if app.ID == "" || app.RoundID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO applications (id, round_id, applicant_id, customer_type, received_at)
			VALUES (?, ?, ?, ?, ?)`,
			app.ID, app.RoundID, app.ApplicantID, string(app.CustomerType), formatTime(app.ReceivedAt))
		if err != nil {
			return mapError(err)
		}

		for eventPos, event := range app.Events {
			if _, err := tx.Exec(`
				INSERT INTO application_events (id, application_id, name, purpose_id, age_group_id, min_duration_minutes, position)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				event.ID, app.ID, event.Name, event.PurposeID, event.AgeGroupID, minutes(event.MinDuration), eventPos); err != nil {
				return mapError(err)
			}
			for schedPos, schedule := range event.Schedules {
				if _, err := tx.Exec(`
					INSERT INTO event_schedules (id, event_id, day, begin_minutes, end_minutes, priority, position)
					VALUES (?, ?, ?, ?, ?, ?, ?)`,
					schedule.ID, event.ID, int(schedule.Day), minutes(schedule.Begin), minutes(schedule.End), schedule.Priority, schedPos); err != nil {
					return mapError(err)
				}
				for unitPos, unitID := range schedule.PreferredUnitIDs {
					if _, err := tx.Exec(`
						INSERT INTO schedule_preferred_units (schedule_id, reservation_unit_id, position)
						VALUES (?, ?, ?)`,
						schedule.ID, unitID, unitPos); err != nil {
						return mapError(err)
					}
				}
			}
		}
		return nil
	})
}

// ListApplications returns a round's applications in received order with
// their events and schedules attached.
func (r *RoundRepository) ListApplications(ctx context.Context, roundID string) ([]allocation.Application, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, round_id, applicant_id, customer_type, received_at
		FROM applications WHERE round_id = ? ORDER BY received_at, id`, roundID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	apps := make([]allocation.Application, 0)
	for rows.Next() {
		var app allocation.Application
		var customerType, receivedRaw string
		if err := rows.Scan(&app.ID, &app.RoundID, &app.ApplicantID, &customerType, &receivedRaw); err != nil {
			return nil, mapError(err)
		}
		app.CustomerType = allocation.CustomerType(customerType)
		if app.ReceivedAt, err = parseTime(receivedRaw); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range apps {
		events, err := r.loadEvents(ctx, apps[i].ID)
		if err != nil {
			return nil, err
		}
		apps[i].Events = events
	}
	return apps, nil
}

// ReplaceResults atomically swaps the round's allocation results.
func (r *RoundRepository) ReplaceResults(ctx context.Context, roundID string, results []allocation.Result) error {
	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM schedule_results WHERE round_id = ?`, roundID); err != nil {
			return mapError(err)
		}
		for _, result := range results {
			if _, err := tx.Exec(`
				INSERT INTO schedule_results (schedule_id, round_id, event_id, application_id, reservation_unit_id, day, begin_minutes, end_minutes, duration_minutes, basket_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				result.ScheduleID, roundID, result.EventID, result.ApplicationID, result.ReservationUnitID,
				int(result.Day), minutes(result.Begin), minutes(result.End), minutes(result.Duration), result.BasketID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// ListResults returns the round's allocation results ordered by day and time.
func (r *RoundRepository) ListResults(ctx context.Context, roundID string) ([]allocation.Result, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT schedule_id, event_id, application_id, reservation_unit_id, day, begin_minutes, end_minutes, duration_minutes, basket_id
		FROM schedule_results WHERE round_id = ? ORDER BY day, begin_minutes, schedule_id`, roundID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	results := make([]allocation.Result, 0)
	for rows.Next() {
		var result allocation.Result
		var day int
		var begin, end, dur int64
		if err := rows.Scan(&result.ScheduleID, &result.EventID, &result.ApplicationID,
			&result.ReservationUnitID, &day, &begin, &end, &dur, &result.BasketID); err != nil {
			return nil, mapError(err)
		}
		result.Day = time.Weekday(day)
		result.Begin = duration(begin)
		result.End = duration(end)
		result.Duration = duration(dur)
		results = append(results, result)
	}
	return results, rows.Err()
}

const roundSelect = `
	SELECT id, name, service_sector_id,
		application_period_begin, application_period_end,
		reservation_period_begin, reservation_period_end,
		public_display_begin, public_display_end,
		status, created_at, updated_at
	FROM application_rounds`

func scanRound(row rowScanner) (allocation.Round, error) {
	var round allocation.Round
	var appBegin, appEnd, resBegin, resEnd, dispBegin, dispEnd, status, createdRaw, updatedRaw string

	err := row.Scan(
		&round.ID,
		&round.Name,
		&round.ServiceSectorID,
		&appBegin,
		&appEnd,
		&resBegin,
		&resEnd,
		&dispBegin,
		&dispEnd,
		&status,
		&createdRaw,
		&updatedRaw,
	)
	if err != nil {
		return allocation.Round{}, err
	}

	round.Status = allocation.RoundStatus(status)
	if round.ApplicationPeriodBegin, err = parseTime(appBegin); err != nil {
		return allocation.Round{}, err
	}
	if round.ApplicationPeriodEnd, err = parseTime(appEnd); err != nil {
		return allocation.Round{}, err
	}
	if round.ReservationPeriodBegin, err = parseTime(resBegin); err != nil {
		return allocation.Round{}, err
	}
	if round.ReservationPeriodEnd, err = parseTime(resEnd); err != nil {
		return allocation.Round{}, err
	}
	if round.PublicDisplayBegin, err = parseTime(dispBegin); err != nil {
		return allocation.Round{}, err
	}
	if round.PublicDisplayEnd, err = parseTime(dispEnd); err != nil {
		return allocation.Round{}, err
	}
	if round.CreatedAt, err = parseTime(createdRaw); err != nil {
		return allocation.Round{}, err
	}
	if round.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return allocation.Round{}, err
	}
	return round, nil
}

func (r *RoundRepository) insertRoundChildren(tx *sql.Tx, round allocation.Round) error {
	for _, unitID := range round.ReservationUnitIDs {
		if _, err := tx.Exec(`
			INSERT INTO round_reservation_units (round_id, reservation_unit_id) VALUES (?, ?)`,
			round.ID, unitID); err != nil {
			return mapError(err)
		}
	}
	for _, basket := range round.Baskets {
		if _, err := tx.Exec(`
			INSERT INTO round_baskets (id, round_id, name, order_number, customer_type, allocation_percentage)
			VALUES (?, ?, ?, ?, ?, ?)`,
			basket.ID, round.ID, basket.Name, basket.OrderNumber, string(basket.CustomerType), basket.AllocationPercentage); err != nil {
			return mapError(err)
		}
		for _, purposeID := range basket.PurposeIDs {
			if _, err := tx.Exec(`
				INSERT INTO basket_purposes (basket_id, purpose_id) VALUES (?, ?)`,
				basket.ID, purposeID); err != nil {
				return mapError(err)
			}
		}
		for _, ageGroupID := range basket.AgeGroupIDs {
			if _, err := tx.Exec(`
				INSERT INTO basket_age_groups (basket_id, age_group_id) VALUES (?, ?)`,
				basket.ID, ageGroupID); err != nil {
				return mapError(err)
			}
		}
	}
	return nil
}

func (r *RoundRepository) attachRoundChildren(ctx context.Context, round *allocation.Round) error {
	unitRows, err := r.store.db.QueryContext(ctx, `
		SELECT reservation_unit_id FROM round_reservation_units WHERE round_id = ? ORDER BY reservation_unit_id`, round.ID)
	if err != nil {
		return mapError(err)
	}
	defer unitRows.Close()
	for unitRows.Next() {
		var unitID string
		if err := unitRows.Scan(&unitID); err != nil {
			return mapError(err)
		}
		round.ReservationUnitIDs = append(round.ReservationUnitIDs, unitID)
	}
	if err := unitRows.Err(); err != nil {
		return mapError(err)
	}

	basketRows, err := r.store.db.QueryContext(ctx, `
		SELECT id, name, order_number, customer_type, allocation_percentage
		FROM round_baskets WHERE round_id = ? ORDER BY order_number`, round.ID)
	if err != nil {
		return mapError(err)
	}
	defer basketRows.Close()
	for basketRows.Next() {
		var basket allocation.Basket
		var customerType string
		if err := basketRows.Scan(&basket.ID, &basket.Name, &basket.OrderNumber, &customerType, &basket.AllocationPercentage); err != nil {
			return mapError(err)
		}
		basket.CustomerType = allocation.CustomerType(customerType)
		round.Baskets = append(round.Baskets, basket)
	}
	if err := basketRows.Err(); err != nil {
		return mapError(err)
	}

	for i := range round.Baskets {
		purposes, err := r.basketLinks(ctx, `SELECT purpose_id FROM basket_purposes WHERE basket_id = ? ORDER BY purpose_id`, round.Baskets[i].ID)
		if err != nil {
			return err
		}
		ageGroups, err := r.basketLinks(ctx, `SELECT age_group_id FROM basket_age_groups WHERE basket_id = ? ORDER BY age_group_id`, round.Baskets[i].ID)
		if err != nil {
			return err
		}
		round.Baskets[i].PurposeIDs = purposes
		round.Baskets[i].AgeGroupIDs = ageGroups
	}
	return nil
}

func (r *RoundRepository) basketLinks(ctx context.Context, query, basketID string) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx, query, basketID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *RoundRepository) loadEvents(ctx context.Context, applicationID string) ([]allocation.Event, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, name, purpose_id, age_group_id, min_duration_minutes
		FROM application_events WHERE application_id = ? ORDER BY position, id`, applicationID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]allocation.Event, 0)
	for rows.Next() {
		var event allocation.Event
		var minDur int64
		if err := rows.Scan(&event.ID, &event.Name, &event.PurposeID, &event.AgeGroupID, &minDur); err != nil {
			return nil, mapError(err)
		}
		event.MinDuration = duration(minDur)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range events {
		schedules, err := r.loadSchedules(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].Schedules = schedules
	}
	return events, nil
}

func (r *RoundRepository) loadSchedules(ctx context.Context, eventID string) ([]allocation.EventSchedule, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, day, begin_minutes, end_minutes, priority
		FROM event_schedules WHERE event_id = ? ORDER BY position, id`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	schedules := make([]allocation.EventSchedule, 0)
	for rows.Next() {
		var schedule allocation.EventSchedule
		var day int
		var begin, end int64
		if err := rows.Scan(&schedule.ID, &day, &begin, &end, &schedule.Priority); err != nil {
			return nil, mapError(err)
		}
		schedule.Day = time.Weekday(day)
		schedule.Begin = duration(begin)
		schedule.End = duration(end)
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range schedules {
		units, err := r.loadPreferredUnits(ctx, schedules[i].ID)
		if err != nil {
			return nil, err
		}
		schedules[i].PreferredUnitIDs = units
	}
	return schedules, nil
}

func (r *RoundRepository) loadPreferredUnits(ctx context.Context, scheduleID string) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT reservation_unit_id FROM schedule_preferred_units WHERE schedule_id = ? ORDER BY position`, scheduleID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
