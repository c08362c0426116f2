package services

import "errors"

// Sentinel errors mapped to HTTP status codes at the handler edge. Validation
// failures are raised before any state mutation; inside a settlement transaction
// any error aborts the whole transaction.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPosition = errors.New("invalid position")
	ErrForbidden       = errors.New("forbidden")
	ErrNoLevelAssigned = errors.New("no level assigned")
)
