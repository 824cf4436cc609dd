package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/varaamo/internal/persistence"
)

// UserRepository implements persistence.UserRepository.
type UserRepository struct {
	store *Store
}

// NewUserRepository wires the repository to the store.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// CreateUser inserts a user with their role grants.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO users (id, email, display_name, password_hash, general_admin, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			strings.ToLower(strings.TrimSpace(user.Email)),
			user.DisplayName,
			user.PasswordHash,
			boolToInt(user.GeneralAdmin),
			formatTime(user.CreatedAt),
			formatTime(user.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return insertUserGrants(tx, user)
	})
}

// UpdateUser rewrites a user row and role grants.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE users SET email = ?, display_name = ?, password_hash = ?, general_admin = ?, updated_at = ?
			WHERE id = ?`,
			strings.ToLower(strings.TrimSpace(user.Email)),
			user.DisplayName,
			user.PasswordHash,
			boolToInt(user.GeneralAdmin),
			formatTime(user.UpdatedAt),
			user.ID,
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

		if _, err := tx.Exec(`DELETE FROM user_service_sectors WHERE user_id = ?`, user.ID); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(`DELETE FROM user_units WHERE user_id = ?`, user.ID); err != nil {
			return mapError(err)
		}
		return insertUserGrants(tx, user)
	})
}

// GetUser loads a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return r.getUserWhere(ctx, `id = ?`, id)
}

// GetUserByEmail loads a user by their lowercase email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return r.getUserWhere(ctx, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

// ListUsers returns every user ordered by email.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.store.db.QueryContext(ctx, userSelect+` ORDER BY email`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, mapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range users {
		if err := r.attachGrants(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

const userSelect = `
	SELECT id, email, display_name, password_hash, general_admin, created_at, updated_at
	FROM users`

func (r *UserRepository) getUserWhere(ctx context.Context, condition string, arg interface{}) (persistence.User, error) {
	row := r.store.db.QueryRowContext(ctx, userSelect+` WHERE `+condition, arg)
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	if err := r.attachGrants(ctx, &user); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var generalAdmin int
	var createdRaw, updatedRaw string

	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &generalAdmin, &createdRaw, &updatedRaw)
	if err != nil {
		return persistence.User{}, err
	}
	user.GeneralAdmin = generalAdmin != 0
	if user.CreatedAt, err = parseTime(createdRaw); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func insertUserGrants(tx *sql.Tx, user persistence.User) error {
	for _, sectorID := range user.ServiceSectorAdminIDs {
		if _, err := tx.Exec(`
			INSERT INTO user_service_sectors (user_id, service_sector_id) VALUES (?, ?)`,
			user.ID, sectorID); err != nil {
			return mapError(err)
		}
	}
	for _, unitID := range user.UnitAdminIDs {
		if _, err := tx.Exec(`
			INSERT INTO user_units (user_id, unit_id) VALUES (?, ?)`,
			user.ID, unitID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *UserRepository) attachGrants(ctx context.Context, user *persistence.User) error {
	sectors, err := r.grantIDs(ctx, `SELECT service_sector_id FROM user_service_sectors WHERE user_id = ? ORDER BY service_sector_id`, user.ID)
	if err != nil {
		return err
	}
	units, err := r.grantIDs(ctx, `SELECT unit_id FROM user_units WHERE user_id = ? ORDER BY unit_id`, user.ID)
	if err != nil {
		return err
	}
	user.ServiceSectorAdminIDs = sectors
	user.UnitAdminIDs = units
	return nil
}

func (r *UserRepository) grantIDs(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx, query, userID)
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
