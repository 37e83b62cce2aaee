package domain

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the role an operation requires.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a referenced event does not exist.
	ErrNotFound = errors.New("event not found")

	// ErrInvalidInput is returned when an argument is out of bounds.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOwnerMismatch is returned when a store was initialized with a different owner.
	ErrOwnerMismatch = errors.New("registry owner mismatch")
)
