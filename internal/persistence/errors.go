package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key (email, room number, amenity name) already exists.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a CHECK constraint or a repository precondition fails.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a row is still referenced or references a missing row.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrConflict is returned when a booking overlaps an active reservation of the same room.
	ErrConflict = errors.New("persistence: booking conflict")
	// ErrStaleState is returned when a conditional update found the row in an unexpected state.
	ErrStaleState = errors.New("persistence: stale state")
)
