package domain

import "errors"

var (
	// Taxonomy surfaced to callers; HTTP mapping lives in the api layer.
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("entity not found")
	ErrGateway        = errors.New("payment gateway unavailable")
	ErrPersistence    = errors.New("persistence failure")

	// Common domain errors
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid exec context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrPlanInactive       = errors.New("plan is not active")
)

// IsRetryable reports whether the caller may safely repeat the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGateway) || errors.Is(err, ErrPersistence)
}
