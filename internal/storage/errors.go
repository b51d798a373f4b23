package storage

import "errors"

// Sentinel errors returned by every Repository implementation. Callers match
// them with errors.Is; the API layer maps them onto HTTP status codes.
var (
	// ErrNotFound signals that a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a uniqueness violation (duplicate username, slug,
	// or a second review for the same title by the same author).
	ErrConflict = errors.New("already exists")
	// ErrValidation signals that the supplied data failed a domain rule.
	ErrValidation = errors.New("invalid input")
)
