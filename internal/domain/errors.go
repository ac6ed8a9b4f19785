package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these
// so the boundary layer can classify it with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidState        = errors.New("invalid state")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrValidation          = errors.New("validation failed")
)

var (
	ErrMatchNotFound    = fmt.Errorf("match %w", ErrNotFound)
	ErrSeatNotFound     = fmt.Errorf("seat %w", ErrNotFound)
	ErrParkingNotFound  = fmt.Errorf("parking slot %w", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrAlreadyAssigned = fmt.Errorf("resource already assigned for this match: %w", ErrConflict)
	ErrCustomerExists  = fmt.Errorf("customer name already exists: %w", ErrConflict)
	ErrSeatExists      = fmt.Errorf("seat coordinates already exist: %w", ErrConflict)
	ErrParkingExists   = fmt.Errorf("parking slot id already exists: %w", ErrConflict)
	ErrUserExists      = fmt.Errorf("username already exists: %w", ErrConflict)
	ErrMatchExists     = fmt.Errorf("match api id already exists: %w", ErrConflict)

	ErrAwayMatch = fmt.Errorf("match is not a home match: %w", ErrInvalidState)
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
