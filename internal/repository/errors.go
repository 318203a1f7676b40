package repository

import "errors"

// Store-level errors shared by the Postgres and in-memory implementations.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrStale is returned by conditional updates whose precondition no longer holds.
	ErrStale = errors.New("record changed concurrently")
	// ErrInvalidTransition rejects a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTestClosed is returned when a submission arrives after its test stopped accepting them.
	ErrTestClosed = errors.New("test is not accepting submissions")
)
