// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/transport layers.
var (
	// ErrInvalidArgument indicates a malformed limit, cursor, vote value or payload.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates the requested entity (item or user) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates a mutation attempted without an acting user.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrForbidden indicates the acting user does not own the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a transaction aborted by a serialization failure or deadlock.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indicates the store or network could not serve the request; retry is safe.
	ErrUnavailable = errors.New("unavailable")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates the acting user exceeded the vote budget for the current window.
	ErrRateLimited = errors.New("rate limited")
)
