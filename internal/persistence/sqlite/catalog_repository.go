package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/example/varaamo/internal/booking"
	"github.com/example/varaamo/internal/persistence"
	"github.com/example/varaamo/internal/pricing"
)

// CatalogRepository implements persistence.CatalogRepository.
type CatalogRepository struct {
	store *Store
}

// NewCatalogRepository wires the repository to the store.
func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{store: store}
}

// CreateReservationUnit inserts a reservation unit with its space and
// resource links.
func (r *CatalogRepository) CreateReservationUnit(ctx context.Context, unit booking.ReservationUnit) error {
	if unit.ID == "" || !unit.StartInterval.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO reservation_units (
				id, name, unit_id, sku, start_interval,
				min_duration_minutes, max_duration_minutes,
				buffer_before_minutes, buffer_after_minutes,
				reservation_begins, reservation_ends,
				min_days_before, max_days_before,
				max_reservations_per_user, allow_without_opening_hours,
				require_handling, price_unit, lowest_price, highest_price, tax_percentage,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			unit.ID,
			unit.Name,
			unit.UnitID,
			unit.SKU,
			int(unit.StartInterval),
			minutes(unit.MinReservationDuration),
			minutes(unit.MaxReservationDuration),
			minutes(unit.BufferTimeBefore),
			minutes(unit.BufferTimeAfter),
			formatNullableTime(unit.ReservationBegins),
			formatNullableTime(unit.ReservationEnds),
			unit.ReservationsMinDaysBefore,
			unit.ReservationsMaxDaysBefore,
			unit.MaxReservationsPerUser,
			boolToInt(unit.AllowReservationsWithoutOpeningHours),
			boolToInt(unit.RequireReservationHandling),
			string(unit.Pricing.Unit),
			unit.Pricing.LowestPrice,
			unit.Pricing.HighestPrice,
			unit.Pricing.TaxPercentage,
			formatTime(unit.CreatedAt),
			formatTime(unit.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return insertUnitLinks(tx, unit)
	})
}

// UpdateReservationUnit rewrites a unit's configuration and links.
func (r *CatalogRepository) UpdateReservationUnit(ctx context.Context, unit booking.ReservationUnit) error {
	if unit.ID == "" || !unit.StartInterval.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE reservation_units
			SET name = ?, unit_id = ?, sku = ?, start_interval = ?,
				min_duration_minutes = ?, max_duration_minutes = ?,
				buffer_before_minutes = ?, buffer_after_minutes = ?,
				reservation_begins = ?, reservation_ends = ?,
				min_days_before = ?, max_days_before = ?,
				max_reservations_per_user = ?, allow_without_opening_hours = ?,
				require_handling = ?, price_unit = ?, lowest_price = ?, highest_price = ?, tax_percentage = ?,
				updated_at = ?
			WHERE id = ?`,
			unit.Name,
			unit.UnitID,
			unit.SKU,
			int(unit.StartInterval),
			minutes(unit.MinReservationDuration),
			minutes(unit.MaxReservationDuration),
			minutes(unit.BufferTimeBefore),
			minutes(unit.BufferTimeAfter),
			formatNullableTime(unit.ReservationBegins),
			formatNullableTime(unit.ReservationEnds),
			unit.ReservationsMinDaysBefore,
			unit.ReservationsMaxDaysBefore,
			unit.MaxReservationsPerUser,
			boolToInt(unit.AllowReservationsWithoutOpeningHours),
			boolToInt(unit.RequireReservationHandling),
			string(unit.Pricing.Unit),
			unit.Pricing.LowestPrice,
			unit.Pricing.HighestPrice,
			unit.Pricing.TaxPercentage,
			formatTime(unit.UpdatedAt),
			unit.ID,
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

		if _, err := tx.Exec(`DELETE FROM reservation_unit_spaces WHERE reservation_unit_id = ?`, unit.ID); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(`DELETE FROM reservation_unit_resources WHERE reservation_unit_id = ?`, unit.ID); err != nil {
			return mapError(err)
		}
		return insertUnitLinks(tx, unit)
	})
}

// GetReservationUnit loads one unit with its links.
func (r *CatalogRepository) GetReservationUnit(ctx context.Context, id string) (booking.ReservationUnit, error) {
	if id == "" {
		return booking.ReservationUnit{}, persistence.ErrNotFound
	}

	row := r.store.db.QueryRowContext(ctx, reservationUnitSelect+` WHERE id = ?`, id)
	unit, err := scanReservationUnit(row)
	if err != nil {
		return booking.ReservationUnit{}, mapError(err)
	}
	if err := r.attachLinks(ctx, &unit); err != nil {
		return booking.ReservationUnit{}, err
	}
	return unit, nil
}

// ListReservationUnits returns the whole catalog ordered by name then ID.
func (r *CatalogRepository) ListReservationUnits(ctx context.Context) ([]booking.ReservationUnit, error) {
	rows, err := r.store.db.QueryContext(ctx, reservationUnitSelect+` ORDER BY name, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	units := make([]booking.ReservationUnit, 0)
	for rows.Next() {
		unit, err := scanReservationUnit(rows)
		if err != nil {
			return nil, mapError(err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range units {
		if err := r.attachLinks(ctx, &units[i]); err != nil {
			return nil, err
		}
	}
	return units, nil
}

// CreateSpace inserts a space node.
func (r *CatalogRepository) CreateSpace(ctx context.Context, space booking.Space) error {
	if space.ID == "" {
		return persistence.ErrConstraintViolation
	}
	var parentID sql.NullString
	if space.ParentID != nil {
		parentID = sql.NullString{String: *space.ParentID, Valid: true}
	}
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO spaces (id, name, parent_id, unit_id) VALUES (?, ?, ?, ?)`,
		space.ID, space.Name, parentID, space.UnitID)
	return mapError(err)
}

// ListSpaces returns every space ordered by ID.
func (r *CatalogRepository) ListSpaces(ctx context.Context) ([]booking.Space, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT id, name, parent_id, unit_id FROM spaces ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	spaces := make([]booking.Space, 0)
	for rows.Next() {
		var space booking.Space
		var parentID sql.NullString
		if err := rows.Scan(&space.ID, &space.Name, &parentID, &space.UnitID); err != nil {
			return nil, mapError(err)
		}
		if parentID.Valid {
			parent := parentID.String
			space.ParentID = &parent
		}
		spaces = append(spaces, space)
	}
	return spaces, rows.Err()
}

// CreateResource inserts a resource.
func (r *CatalogRepository) CreateResource(ctx context.Context, resource booking.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}
	var spaceID sql.NullString
	if resource.SpaceID != nil {
		spaceID = sql.NullString{String: *resource.SpaceID, Valid: true}
	}
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO resources (id, name, space_id) VALUES (?, ?, ?)`,
		resource.ID, resource.Name, spaceID)
	return mapError(err)
}

// ListResources returns every resource ordered by ID.
func (r *CatalogRepository) ListResources(ctx context.Context) ([]booking.Resource, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT id, name, space_id FROM resources ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	resources := make([]booking.Resource, 0)
	for rows.Next() {
		var resource booking.Resource
		var spaceID sql.NullString
		if err := rows.Scan(&resource.ID, &resource.Name, &spaceID); err != nil {
			return nil, mapError(err)
		}
		if spaceID.Valid {
			space := spaceID.String
			resource.SpaceID = &space
		}
		resources = append(resources, resource)
	}
	return resources, rows.Err()
}

// CreateUnit inserts an organizational unit and its service-sector grants.
func (r *CatalogRepository) CreateUnit(ctx context.Context, unit booking.Unit) error {
	if unit.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO units (id, name) VALUES (?, ?)`, unit.ID, unit.Name); err != nil {
			return mapError(err)
		}
		for _, sectorID := range unit.ServiceSectorIDs {
			if _, err := tx.Exec(`
				INSERT INTO unit_service_sectors (unit_id, service_sector_id) VALUES (?, ?)`,
				unit.ID, sectorID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetUnit loads an organizational unit.
func (r *CatalogRepository) GetUnit(ctx context.Context, id string) (booking.Unit, error) {
	row := r.store.db.QueryRowContext(ctx, `SELECT id, name FROM units WHERE id = ?`, id)
	var unit booking.Unit
	if err := row.Scan(&unit.ID, &unit.Name); err != nil {
		return booking.Unit{}, mapError(err)
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT service_sector_id FROM unit_service_sectors WHERE unit_id = ? ORDER BY service_sector_id`, id)
	if err != nil {
		return booking.Unit{}, mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var sectorID string
		if err := rows.Scan(&sectorID); err != nil {
			return booking.Unit{}, mapError(err)
		}
		unit.ServiceSectorIDs = append(unit.ServiceSectorIDs, sectorID)
	}
	return unit, rows.Err()
}

const reservationUnitSelect = `
	SELECT id, name, unit_id, sku, start_interval,
		min_duration_minutes, max_duration_minutes,
		buffer_before_minutes, buffer_after_minutes,
		reservation_begins, reservation_ends,
		min_days_before, max_days_before,
		max_reservations_per_user, allow_without_opening_hours,
		require_handling, price_unit, lowest_price, highest_price, tax_percentage,
		created_at, updated_at
	FROM reservation_units`

func scanReservationUnit(row rowScanner) (booking.ReservationUnit, error) {
	var unit booking.ReservationUnit
	var startInterval int
	var minDur, maxDur, bufBefore, bufAfter int64
	var begins, ends sql.NullString
	var allowWithout, requireHandling int
	var priceUnit string
	var createdRaw, updatedRaw string

	err := row.Scan(
		&unit.ID,
		&unit.Name,
		&unit.UnitID,
		&unit.SKU,
		&startInterval,
		&minDur,
		&maxDur,
		&bufBefore,
		&bufAfter,
		&begins,
		&ends,
		&unit.ReservationsMinDaysBefore,
		&unit.ReservationsMaxDaysBefore,
		&unit.MaxReservationsPerUser,
		&allowWithout,
		&requireHandling,
		&priceUnit,
		&unit.Pricing.LowestPrice,
		&unit.Pricing.HighestPrice,
		&unit.Pricing.TaxPercentage,
		&createdRaw,
		&updatedRaw,
	)
	if err != nil {
		return booking.ReservationUnit{}, err
	}

	unit.StartInterval = booking.StartInterval(startInterval)
	unit.MinReservationDuration = duration(minDur)
	unit.MaxReservationDuration = duration(maxDur)
	unit.BufferTimeBefore = duration(bufBefore)
	unit.BufferTimeAfter = duration(bufAfter)
	unit.AllowReservationsWithoutOpeningHours = allowWithout != 0
	unit.RequireReservationHandling = requireHandling != 0
	unit.Pricing.Unit = pricing.Unit(priceUnit)

	if unit.ReservationBegins, err = parseNullableTime(begins); err != nil {
		return booking.ReservationUnit{}, err
	}
	if unit.ReservationEnds, err = parseNullableTime(ends); err != nil {
		return booking.ReservationUnit{}, err
	}
	if unit.CreatedAt, err = parseTime(createdRaw); err != nil {
		return booking.ReservationUnit{}, err
	}
	if unit.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return booking.ReservationUnit{}, err
	}
	return unit, nil
}

func insertUnitLinks(tx *sql.Tx, unit booking.ReservationUnit) error {
	for _, spaceID := range unit.SpaceIDs {
		if _, err := tx.Exec(`
			INSERT INTO reservation_unit_spaces (reservation_unit_id, space_id) VALUES (?, ?)`,
			unit.ID, spaceID); err != nil {
			return mapError(err)
		}
	}
	for _, resourceID := range unit.ResourceIDs {
		if _, err := tx.Exec(`
			INSERT INTO reservation_unit_resources (reservation_unit_id, resource_id) VALUES (?, ?)`,
			unit.ID, resourceID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *CatalogRepository) attachLinks(ctx context.Context, unit *booking.ReservationUnit) error {
	spaceIDs, err := r.linkedIDs(ctx, `SELECT space_id FROM reservation_unit_spaces WHERE reservation_unit_id = ?`, unit.ID)
	if err != nil {
		return err
	}
	resourceIDs, err := r.linkedIDs(ctx, `SELECT resource_id FROM reservation_unit_resources WHERE reservation_unit_id = ?`, unit.ID)
	if err != nil {
		return err
	}
	unit.SpaceIDs = spaceIDs
	unit.ResourceIDs = resourceIDs
	return nil
}

func (r *CatalogRepository) linkedIDs(ctx context.Context, query, id string) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	ids := make([]string, 0, 2)
	for rows.Next() {
		var linked string
		if err := rows.Scan(&linked); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, linked)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	sort.Strings(ids)
	return ids, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
