// Package sqlite implements the persistence repositories on SQLite through
// the pure-Go modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/varaamo/internal/persistence"
	_ "modernc.org/sqlite"
)

// Store owns the database handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	// modernc sqlite serializes writes; a single connection avoids busy errors.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTransaction runs fn inside a transaction, rolling back on error or panic.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

// Migrate creates the schema when missing. Statements are idempotent so the
// store can be reopened against an existing file.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		general_admin INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_service_sectors (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		service_sector_id TEXT NOT NULL,
		PRIMARY KEY (user_id, service_sector_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_units (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		unit_id TEXT NOT NULL,
		PRIMARY KEY (user_id, unit_id)
	)`,
	`CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS unit_service_sectors (
		unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
		service_sector_id TEXT NOT NULL,
		PRIMARY KEY (unit_id, service_sector_id)
	)`,
	`CREATE TABLE IF NOT EXISTS spaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT,
		unit_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		space_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS reservation_units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit_id TEXT NOT NULL DEFAULT '',
		sku TEXT NOT NULL DEFAULT '',
		start_interval INTEGER NOT NULL DEFAULT 15,
		min_duration_minutes INTEGER NOT NULL DEFAULT 0,
		max_duration_minutes INTEGER NOT NULL DEFAULT 0,
		buffer_before_minutes INTEGER NOT NULL DEFAULT 0,
		buffer_after_minutes INTEGER NOT NULL DEFAULT 0,
		reservation_begins TEXT,
		reservation_ends TEXT,
		min_days_before INTEGER NOT NULL DEFAULT 0,
		max_days_before INTEGER NOT NULL DEFAULT 0,
		max_reservations_per_user INTEGER NOT NULL DEFAULT 0,
		allow_without_opening_hours INTEGER NOT NULL DEFAULT 0,
		require_handling INTEGER NOT NULL DEFAULT 0,
		price_unit TEXT NOT NULL DEFAULT 'FIXED',
		lowest_price REAL NOT NULL DEFAULT 0,
		highest_price REAL NOT NULL DEFAULT 0,
		tax_percentage REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservation_unit_spaces (
		reservation_unit_id TEXT NOT NULL REFERENCES reservation_units(id) ON DELETE CASCADE,
		space_id TEXT NOT NULL,
		PRIMARY KEY (reservation_unit_id, space_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reservation_unit_resources (
		reservation_unit_id TEXT NOT NULL REFERENCES reservation_units(id) ON DELETE CASCADE,
		resource_id TEXT NOT NULL,
		PRIMARY KEY (reservation_unit_id, resource_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		begin_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		buffer_before_minutes INTEGER NOT NULL DEFAULT 0,
		buffer_after_minutes INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		price REAL NOT NULL DEFAULT 0,
		sku TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservation_reservation_units (
		reservation_id TEXT NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		reservation_unit_id TEXT NOT NULL,
		PRIMARY KEY (reservation_id, reservation_unit_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_time ON reservations(begin_time, end_time)`,
	`CREATE TABLE IF NOT EXISTS application_rounds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		service_sector_id TEXT NOT NULL DEFAULT '',
		application_period_begin TEXT NOT NULL,
		application_period_end TEXT NOT NULL,
		reservation_period_begin TEXT NOT NULL,
		reservation_period_end TEXT NOT NULL,
		public_display_begin TEXT NOT NULL DEFAULT '',
		public_display_end TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS round_reservation_units (
		round_id TEXT NOT NULL REFERENCES application_rounds(id) ON DELETE CASCADE,
		reservation_unit_id TEXT NOT NULL,
		PRIMARY KEY (round_id, reservation_unit_id)
	)`,
	`CREATE TABLE IF NOT EXISTS round_baskets (
		id TEXT PRIMARY KEY,
		round_id TEXT NOT NULL REFERENCES application_rounds(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		order_number INTEGER NOT NULL,
		customer_type TEXT NOT NULL DEFAULT '',
		allocation_percentage INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS basket_purposes (
		basket_id TEXT NOT NULL REFERENCES round_baskets(id) ON DELETE CASCADE,
		purpose_id TEXT NOT NULL,
		PRIMARY KEY (basket_id, purpose_id)
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		round_id TEXT NOT NULL REFERENCES application_rounds(id) ON DELETE CASCADE,
		applicant_id TEXT NOT NULL DEFAULT '',
		customer_type TEXT NOT NULL DEFAULT '',
		received_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS basket_age_groups (
		basket_id TEXT NOT NULL REFERENCES round_baskets(id) ON DELETE CASCADE,
		age_group_id TEXT NOT NULL,
		PRIMARY KEY (basket_id, age_group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS application_events (
		id TEXT PRIMARY KEY,
		application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		name TEXT NOT NULL DEFAULT '',
		purpose_id TEXT NOT NULL DEFAULT '',
		age_group_id TEXT NOT NULL DEFAULT '',
		min_duration_minutes INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS event_schedules (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES application_events(id) ON DELETE CASCADE,
		day INTEGER NOT NULL,
		begin_minutes INTEGER NOT NULL,
		end_minutes INTEGER NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_preferred_units (
		schedule_id TEXT NOT NULL REFERENCES event_schedules(id) ON DELETE CASCADE,
		reservation_unit_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (schedule_id, reservation_unit_id)
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_results (
		schedule_id TEXT PRIMARY KEY,
		round_id TEXT NOT NULL REFERENCES application_rounds(id) ON DELETE CASCADE,
		event_id TEXT NOT NULL,
		application_id TEXT NOT NULL,
		reservation_unit_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		begin_minutes INTEGER NOT NULL,
		end_minutes INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		basket_id TEXT NOT NULL DEFAULT ''
	)`,
}

// mapError converts driver errors to the persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", persistence.ErrAlreadyExists, err)
	}
	if strings.Contains(msg, "constraint failed") {
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", value, err)
	}
	return t, nil
}

func formatNullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func minutes(d time.Duration) int64 {
	return int64(d / time.Minute)
}

func duration(mins int64) time.Duration {
	return time.Duration(mins) * time.Minute
}
