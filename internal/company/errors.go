package company

import "errors"

// Domain-specific errors for company operations.
var (
	// ErrNotFound is returned when a company does not exist.
	ErrNotFound = errors.New("company: not found")
)
