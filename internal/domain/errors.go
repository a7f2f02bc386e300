package domain

import (
	"errors"

	"example.com/habittracker/internal/analytics"
)

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("%w: ...") to add
// a human-readable detail; match with errors.Is.
var (
	// ErrValidation marks missing or malformed request fields.
	ErrValidation = errors.New("validation error")
	// ErrInvalidInput marks a weekly report request without a usable instant or offset.
	ErrInvalidInput = analytics.ErrInvalidInput
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the record.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned for missing or rejected credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("conflict")
)
