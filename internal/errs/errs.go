// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrUnauthenticated indicates a missing or invalid verified identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates an ownership check denied the access.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a field value outside its domain.
	ErrValidation = errors.New("validation failed")

	// ErrAttemptsExhausted indicates the diagnostic retry budget (3) is spent.
	ErrAttemptsExhausted = errors.New("diagnostic attempts exhausted")

	// ErrMaxLevel indicates the level ceiling (5) is already reached.
	ErrMaxLevel = errors.New("already at max level")

	// ErrMaxHint indicates the hint-stage ceiling (2) is already reached.
	ErrMaxHint = errors.New("already at max hint stage")

	// ErrAlreadyExists indicates a unique constraint violation (email/username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict indicates a concurrent-write race detected by the store.
	ErrConflict = errors.New("conflict")

	// ErrTransient indicates a timeout or connectivity failure, safe to retry.
	ErrTransient = errors.New("transient failure")
)
