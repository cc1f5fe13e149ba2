// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the entity does not exist, is deleted, or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates an optimistic concurrency failure (expected version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates a missing or wrong credential (bearer token or note password).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller can see the note but is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalid indicates malformed input.
	ErrInvalid = errors.New("invalid input")

	// ErrRateLimited indicates temporary lock due to repeated failed password attempts.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., duplicate share token).
	ErrAlreadyExists = errors.New("already exists")
)
