package repository

import "errors"

var (
	// ErrNotFound is returned when no document matches the lookup or the
	// conditional update.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate document")
)
