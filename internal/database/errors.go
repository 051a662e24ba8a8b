package database

import "errors"

var (
	// ErrRunNotFound is returned when no run matches the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrNotEnoughRuns is returned when a comparison needs two runs of a seed
	// and fewer are stored.
	ErrNotEnoughRuns = errors.New("at least two runs are required")

	// ErrDatabaseNotFound is returned by Open when the database file does not
	// exist and creation is disabled.
	ErrDatabaseNotFound = errors.New("database not found")
)
