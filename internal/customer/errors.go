package customer

import "errors"

// ErrNotFound is returned when a customer does not exist.
var ErrNotFound = errors.New("customer: not found")
