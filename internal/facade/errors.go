package facade

import "errors"

// Facade errors. Store errors are wrapped in one of these so callers can map
// them without knowing the store packages.
var (
	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("facade: invalid input")

	// ErrNotFound is returned when the target entity does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("facade: not found")

	// ErrInvalidCredentials is returned by Login for any mismatch.
	ErrInvalidCredentials = errors.New("facade: invalid credentials")

	// ErrPurchase is returned when a purchase is refused.
	ErrPurchase = errors.New("facade: purchase refused")

	// ErrConflict is returned when a unique name, title or email is taken.
	ErrConflict = errors.New("facade: conflict")
)
