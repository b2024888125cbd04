package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources. A row that
	// exists but belongs to a different tenant surfaces as ErrNotFound too,
	// so existence never leaks across tenants.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means no valid actor identity was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the actor is known but lacks the required role or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is a generic sentinel for malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is a generic sentinel for uniqueness/state conflicts.
	ErrConflict = errors.New("conflict")
)

// Permanent reports whether err should never be retried by the dispatch
// layer. Anything else is treated as transient infrastructure trouble.
func Permanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict)
}
