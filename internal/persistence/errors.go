package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrAlreadyExists is returned when a record with the same identity exists.
	ErrAlreadyExists = errors.New("persistence: already exists")
	// ErrConstraintViolation is returned when input breaks a storage invariant.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
