package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
)

// FolderRepo implements FolderRepository using PostgreSQL.
type FolderRepo struct{ db *DB }

var _ repository.FolderRepository = (*FolderRepo)(nil)

// NewFolderRepo constructs a folder repository.
func NewFolderRepo(db *DB) *FolderRepo { return &FolderRepo{db: db} }

// CreateFolder stores a folder; a parent must belong to the same owner.
func (r *FolderRepo) CreateFolder(ctx context.Context, f *model.Folder) error {
	const q = `
INSERT INTO folders (id, owner_id, parent_id, name, created_at)
SELECT $1, $2, $3, $4, $5
WHERE $3::uuid IS NULL OR EXISTS (SELECT 1 FROM folders p WHERE p.id = $3 AND p.owner_id = $2)`
	tag, err := r.db.Pool.Exec(ctx, q, f.ID, f.OwnerID, f.ParentID, f.Name, f.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListFolders returns the owner's folders ordered by name.
func (r *FolderRepo) ListFolders(ctx context.Context, ownerID uuid.UUID) ([]model.Folder, error) {
	const q = `SELECT id, owner_id, parent_id, name, created_at FROM folders WHERE owner_id = $1 ORDER BY name`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Folder{}
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.ParentID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// EnrichmentRepo implements EnrichmentRepository using PostgreSQL.
type EnrichmentRepo struct{ db *DB }

var _ repository.EnrichmentRepository = (*EnrichmentRepo)(nil)

// NewEnrichmentRepo constructs an enrichment repository.
func NewEnrichmentRepo(db *DB) *EnrichmentRepo { return &EnrichmentRepo{db: db} }

// SaveEnrichment upserts the latest analysis of a note.
func (r *EnrichmentRepo) SaveEnrichment(ctx context.Context, e model.Enrichment) error {
	const q = `
INSERT INTO note_enrichments (note_id, keywords, summary, sentiment, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (note_id) DO UPDATE
SET keywords = EXCLUDED.keywords, summary = EXCLUDED.summary,
    sentiment = EXCLUDED.sentiment, updated_at = EXCLUDED.updated_at`
	_, err := r.db.Pool.Exec(ctx, q, e.NoteID, e.Keywords, e.Summary, e.Sentiment, e.UpdatedAt)
	return err
}

// GetEnrichment returns the stored analysis of a note.
func (r *EnrichmentRepo) GetEnrichment(ctx context.Context, noteID uuid.UUID) (*model.Enrichment, error) {
	const q = `SELECT note_id, keywords, summary, sentiment, updated_at FROM note_enrichments WHERE note_id = $1`
	var e model.Enrichment
	if err := r.db.Pool.QueryRow(ctx, q, noteID).Scan(&e.NoteID, &e.Keywords, &e.Summary, &e.Sentiment, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ActivityRepo implements ActivityRepository using PostgreSQL.
type ActivityRepo struct{ db *DB }

var _ repository.ActivityRepository = (*ActivityRepo)(nil)

// NewActivityRepo constructs an activity repository.
func NewActivityRepo(db *DB) *ActivityRepo { return &ActivityRepo{db: db} }

// InsertActivity appends an audit event.
func (r *ActivityRepo) InsertActivity(ctx context.Context, ev model.ActivityEvent) error {
	const q = `INSERT INTO activities (user_id, note_id, action, metadata, created_at) VALUES ($1,$2,$3,$4,$5)`
	meta := ev.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	_, err := r.db.Pool.Exec(ctx, q, ev.UserID, ev.NoteID, string(ev.Action), meta, ev.CreatedAt)
	return err
}
