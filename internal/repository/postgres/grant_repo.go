package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
)

// GrantRepo implements GrantRepository using PostgreSQL.
type GrantRepo struct{ db *DB }

var _ repository.GrantRepository = (*GrantRepo)(nil)

// NewGrantRepo constructs a grant repository.
func NewGrantRepo(db *DB) *GrantRepo { return &GrantRepo{db: db} }

// Grants returns the caller's collaboration and the note's share links.
func (r *GrantRepo) Grants(ctx context.Context, callerID, noteID uuid.UUID) (*model.Collaboration, []model.ShareLink, error) {
	const selCollab = `
SELECT note_id, user_id, permission, is_active, created_at
FROM collaborations WHERE note_id = $1 AND user_id = $2`
	const selLinks = `
SELECT id, note_id, token, is_active, expires_at, created_by, created_at
FROM share_links WHERE note_id = $1 ORDER BY created_at`

	var (
		c    model.Collaboration
		perm string
		col  *model.Collaboration
	)
	err := r.db.Pool.QueryRow(ctx, selCollab, noteID, callerID).
		Scan(&c.NoteID, &c.UserID, &perm, &c.IsActive, &c.CreatedAt)
	switch {
	case err == nil:
		c.Permission = model.Permission(perm)
		col = &c
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, nil, err
	}

	rows, err := r.db.Pool.Query(ctx, selLinks, noteID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var links []model.ShareLink
	for rows.Next() {
		var l model.ShareLink
		if err := rows.Scan(&l.ID, &l.NoteID, &l.Token, &l.IsActive, &l.ExpiresAt, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return col, links, rows.Err()
}

// CreateShareLink stores a new link.
func (r *GrantRepo) CreateShareLink(ctx context.Context, l *model.ShareLink) error {
	const q = `
INSERT INTO share_links (id, note_id, token, is_active, expires_at, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Pool.Exec(ctx, q, l.ID, l.NoteID, l.Token, l.IsActive, l.ExpiresAt, l.CreatedBy, l.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("share token: %w", errs.ErrAlreadyExists)
	}
	return err
}

// DeactivateShareLink revokes an active link of the note.
func (r *GrantRepo) DeactivateShareLink(ctx context.Context, noteID, linkID uuid.UUID) error {
	const q = `UPDATE share_links SET is_active = false WHERE id = $1 AND note_id = $2 AND is_active`
	tag, err := r.db.Pool.Exec(ctx, q, linkID, noteID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpsertCollaboration grants or re-activates access.
func (r *GrantRepo) UpsertCollaboration(ctx context.Context, c *model.Collaboration) error {
	const q = `
INSERT INTO collaborations (note_id, user_id, permission, is_active, created_at)
VALUES ($1,$2,$3,true,$4)
ON CONFLICT (note_id, user_id) DO UPDATE SET permission = EXCLUDED.permission, is_active = true`
	_, err := r.db.Pool.Exec(ctx, q, c.NoteID, c.UserID, string(c.Permission), c.CreatedAt)
	return err
}

// DeactivateCollaboration revokes a user's access.
func (r *GrantRepo) DeactivateCollaboration(ctx context.Context, noteID, userID uuid.UUID) error {
	const q = `UPDATE collaborations SET is_active = false WHERE note_id = $1 AND user_id = $2 AND is_active`
	tag, err := r.db.Pool.Exec(ctx, q, noteID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
