package coupon

import "errors"

// Domain-specific errors for coupon operations.
var (
	// ErrNotFound is returned when a coupon does not exist.
	ErrNotFound = errors.New("coupon: not found")

	// ErrInvalidType is returned for a coupon type outside the known set.
	ErrInvalidType = errors.New("coupon: invalid type")

	// ErrInvalidLinkage is returned for a join table name that is not a coupon link.
	ErrInvalidLinkage = errors.New("coupon: invalid linkage")

	// ErrSoldOut is returned when a purchase finds no remaining amount.
	ErrSoldOut = errors.New("coupon: sold out")

	// ErrExpired is returned when purchasing a coupon past its end date.
	ErrExpired = errors.New("coupon: expired")

	// ErrAlreadyPurchased is returned when a customer buys the same coupon twice.
	ErrAlreadyPurchased = errors.New("coupon: already purchased")
)
