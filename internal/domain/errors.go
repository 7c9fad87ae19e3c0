package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the app layer wraps exactly one of these so
// the transport layer can map it to a status code with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

var (
	// ErrQuizNotFound indicates the referenced quiz does not exist.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrQuestionNotFound indicates the referenced question does not exist in the quiz.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrResultNotFound indicates the referenced result does not exist.
	ErrResultNotFound = fmt.Errorf("result %w", ErrNotFound)
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrDuplicateUser is returned when a username or email is already registered.
	ErrDuplicateUser = fmt.Errorf("user already registered: %w", ErrConflict)
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	// ErrNotOwner is returned when a non-admin caller touches someone else's quiz or result.
	ErrNotOwner = fmt.Errorf("not owner: %w", ErrForbidden)
)

// ValidationError describes a caller-fixable problem with one input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for building a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
