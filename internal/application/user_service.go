package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/varaamo/internal/persistence"
)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// PasswordHasher produces a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// UserService manages staff accounts and authentication.
type UserService struct {
	users          persistence.UserRepository
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	permissions    PermissionConfig
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewUserService wires dependencies for account operations.
func NewUserService(users persistence.UserRepository, permissions PermissionConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:          users,
		hashPassword:   CreatePasswordHash,
		verifyPassword: VerifyPassword,
		permissions:    permissions,
		idGenerator:    idGenerator,
		now:            now,
		logger:         logger,
	}
}

func (s *UserService) operationLogger(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

const minPasswordLength = 8

// CreateUser registers a staff account with role grants. Only general admins
// may create accounts.
func (s *UserService) CreateUser(ctx context.Context, principal Principal, input UserInput) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, fmt.Errorf("UserService is nil")
	}
	logger := s.operationLogger(ctx, "CreateUser")

	if !principal.GeneralAdmin && !s.permissions.Disabled {
		return persistence.User{}, noPermission()
	}

	vErr := &ValidationError{}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "must be a valid email address")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if len(input.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		vErr.add("email", "email is already registered")
		return persistence.User{}, vErr
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.User{}, mapRepoError(err)
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return persistence.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := persistence.User{
		ID:                    s.idGenerator(),
		Email:                 email,
		DisplayName:           strings.TrimSpace(input.DisplayName),
		PasswordHash:          hash,
		GeneralAdmin:          input.GeneralAdmin,
		ServiceSectorAdminIDs: append([]string(nil), input.ServiceSectorAdminIDs...),
		UnitAdminIDs:          append([]string(nil), input.UnitAdminIDs...),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return persistence.User{}, mapRepoError(err)
	}

	logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	return user, nil
}

// Authenticate verifies credentials and resolves the caller's principal.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("UserService is nil")
	}
	logger := s.operationLogger(ctx, "Authenticate")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Principal{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.ErrorContext(ctx, "authentication failed", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, mapRepoError(err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		logger.ErrorContext(ctx, "authentication failed", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
		return Principal{}, ErrInvalidCredentials
	}

	logger.With("user_id", user.ID).InfoContext(ctx, "user authenticated")
	return Principal{
		UserID:                user.ID,
		GeneralAdmin:          user.GeneralAdmin,
		ServiceSectorAdminIDs: append([]string(nil), user.ServiceSectorAdminIDs...),
		UnitAdminIDs:          append([]string(nil), user.UnitAdminIDs...),
	}, nil
}

// GetUser fetches an account. Non-admins may only fetch themselves.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, fmt.Errorf("UserService is nil")
	}
	if !principal.GeneralAdmin && principal.UserID != userID && !s.permissions.Disabled {
		return persistence.User{}, noPermission()
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return persistence.User{}, mapRepoError(err)
	}
	return user, nil
}

// ListUsers enumerates accounts for general admins.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]persistence.User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.GeneralAdmin && !s.permissions.Disabled {
		return nil, noPermission()
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return users, nil
}
