package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when no credential bundle exists for a user
	ErrNotFound = errors.New("credential bundle not found")
)
