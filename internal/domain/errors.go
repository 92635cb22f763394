// Package domain contains the error taxonomy shared by all domain packages.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a resource already exists.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned when input fails a domain rule.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence is returned when a store operation failed.
	ErrPersistence = errors.New("persistence failed")

	// ErrNotConfigured is returned by every store-backed operation when the
	// store credentials are missing.
	ErrNotConfigured = errors.New("store not configured")
)

// Validation returns an ErrValidation with a formatted detail.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound with a formatted detail.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Persistence wraps a store error for op. Errors that already carry a domain
// kind keep it; anything else becomes ErrPersistence. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
