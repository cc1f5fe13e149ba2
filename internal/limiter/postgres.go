package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter with a sliding failure window and lockout.
type PG struct {
	db       pgxQuerier
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Limiter = (*PG)(nil)

// NewPG constructs a limiter over a pool or any compatible querier.
func NewPG(db pgxQuerier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{db: db, window: window, maxFails: maxFails, blockFor: blockFor}
}

// Allow reports whether an attempt is allowed and the retry-after when not.
func (l *PG) Allow(ctx context.Context, userID, noteID uuid.UUID) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM note_password_limiter WHERE user_id=$1 AND note_id=$2`
	var blockedUntil time.Time
	err := l.db.QueryRow(ctx, q, userID, noteID).Scan(&blockedUntil)
	switch {
	case err == nil:
		if wait := time.Until(blockedUntil); wait > 0 {
			return false, wait, nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success clears counters for (user, note).
func (l *PG) Success(ctx context.Context, userID, noteID uuid.UUID) error {
	const q = `DELETE FROM note_password_limiter WHERE user_id=$1 AND note_id=$2`
	_, err := l.db.Exec(ctx, q, userID, noteID)
	return err
}

// Failure counts a wrong password and blocks once maxFails is reached within the window.
func (l *PG) Failure(ctx context.Context, userID, noteID uuid.UUID) (bool, time.Duration, error) {
	const q = `
INSERT INTO note_password_limiter (user_id, note_id, fail_count, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (user_id, note_id) DO UPDATE
SET
  fail_count = CASE WHEN now() - note_password_limiter.updated_at > $3::interval THEN 1 ELSE note_password_limiter.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.db.QueryRow(ctx, q, userID, noteID, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}
	const upd = `UPDATE note_password_limiter SET blocked_until=$3 WHERE user_id=$1 AND note_id=$2`
	if _, err := l.db.Exec(ctx, upd, userID, noteID, time.Now().Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}
