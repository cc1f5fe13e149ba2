// Package limiter throttles wrong-password attempts on protected notes.
package limiter

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Limiter tracks password attempts per (user, note) and places temporary lockouts.
type Limiter interface {
	// Allow reports whether an attempt is currently allowed and an optional retry-after.
	Allow(ctx context.Context, userID, noteID uuid.UUID) (bool, time.Duration, error)
	// Success resets counters after a correct password.
	Success(ctx context.Context, userID, noteID uuid.UUID) error
	// Failure records a wrong password; may place a temporary block.
	Failure(ctx context.Context, userID, noteID uuid.UUID) (bool, time.Duration, error)
}

// Nop never blocks.
type Nop struct{}

func (Nop) Allow(context.Context, uuid.UUID, uuid.UUID) (bool, time.Duration, error) {
	return true, 0, nil
}
func (Nop) Success(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (Nop) Failure(context.Context, uuid.UUID, uuid.UUID) (bool, time.Duration, error) {
	return false, 0, nil
}
