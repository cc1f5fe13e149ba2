package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
)

const noteColumns = `n.id, n.owner_id, n.title, n.content, n.content_html, n.content_canonical, n.excerpt,
 n.privacy, n.password_hash, n.folder_id, n.icon, n.color, n.cover_image, n.word_count, n.reading_time,
 n.is_pinned, n.pinned_at, n.is_archived, n.archived_at, n.is_deleted, n.deleted_at, n.view_count,
 n.created_at, n.updated_at, n.last_edited_at,
 (SELECT COUNT(*) FROM note_versions v WHERE v.note_id = n.id) AS version_count`

// visibleTo mirrors policy.CanRead: $2 is the caller, $3 the evaluation time.
const visibleTo = `(n.owner_id = $2 OR n.privacy = 'PUBLIC'
 OR EXISTS (SELECT 1 FROM collaborations c WHERE c.note_id = n.id AND c.user_id = $2 AND c.is_active)
 OR EXISTS (SELECT 1 FROM share_links s WHERE s.note_id = n.id AND s.is_active
            AND (s.expires_at IS NULL OR s.expires_at > $3)))`

const selectTags = `SELECT nt.note_id, t.id, t.owner_id, t.name, t.color, t.created_at
FROM note_tags nt JOIN tags t ON t.id = nt.tag_id
WHERE nt.note_id = ANY($1)
ORDER BY t.name`

// NoteRepo implements NoteRepository using PostgreSQL.
type NoteRepo struct{ db *DB }

var _ repository.NoteRepository = (*NoteRepo)(nil)

// NewNoteRepo constructs a note repository.
func NewNoteRepo(db *DB) *NoteRepo { return &NoteRepo{db: db} }

func scanNote(row pgx.Row, extra ...any) (*model.Note, error) {
	var (
		n       model.Note
		privacy string
	)
	dest := []any{
		&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.ContentHTML, &n.ContentCanonical, &n.Excerpt,
		&privacy, &n.PasswordHash, &n.FolderID, &n.Icon, &n.Color, &n.CoverImage, &n.WordCount, &n.ReadingTime,
		&n.IsPinned, &n.PinnedAt, &n.IsArchived, &n.ArchivedAt, &n.IsDeleted, &n.DeletedAt, &n.ViewCount,
		&n.CreatedAt, &n.UpdatedAt, &n.LastEditedAt, &n.VersionCount,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	n.Privacy = model.Privacy(privacy)
	n.Tags = []model.Tag{}
	return &n, nil
}

func loadTags(ctx context.Context, q querier, notes ...*model.Note) error {
	if len(notes) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(notes))
	byID := make(map[uuid.UUID]*model.Note, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
		byID[n.ID] = n
	}

	rows, err := q.Query(ctx, selectTags, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			noteID uuid.UUID
			t      model.Tag
		)
		if err := rows.Scan(&noteID, &t.ID, &t.OwnerID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return err
		}
		if n, ok := byID[noteID]; ok {
			n.Tags = append(n.Tags, t)
		}
	}
	return rows.Err()
}

func (r *NoteRepo) queryNotes(ctx context.Context, sql string, args ...any) ([]model.Note, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	var out []*model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadTags(ctx, r.db.Pool, out...); err != nil {
		return nil, err
	}
	return deref(out), nil
}

func deref(in []*model.Note) []model.Note {
	out := make([]model.Note, 0, len(in))
	for _, n := range in {
		out = append(out, *n)
	}
	return out
}

func (r *NoteRepo) getOne(ctx context.Context, sql string, args ...any) (*model.Note, error) {
	n, err := scanNote(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, err
	}
	if err := loadTags(ctx, r.db.Pool, n); err != nil {
		return nil, err
	}
	return n, nil
}

// InTx runs fn inside a transaction.
func (r *NoteRepo) InTx(ctx context.Context, fn func(tx repository.NoteTx) error) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		return fn(&noteTx{tx: tx})
	})
}

// GetVisible returns a live note readable by caller.
func (r *NoteRepo) GetVisible(ctx context.Context, callerID, noteID uuid.UUID, now time.Time) (*model.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes n WHERE n.id = $1 AND NOT n.is_deleted AND ` + visibleTo
	return r.getOne(ctx, q, noteID, callerID, now)
}

// GetByShareToken returns the live note behind a usable share link.
func (r *NoteRepo) GetByShareToken(ctx context.Context, token string, now time.Time) (*model.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes n
JOIN share_links s ON s.note_id = n.id
WHERE s.token = $1 AND s.is_active AND (s.expires_at IS NULL OR s.expires_at > $2) AND NOT n.is_deleted`
	return r.getOne(ctx, q, token, now)
}

// GetAny returns a note regardless of owner and deletion state.
func (r *NoteRepo) GetAny(ctx context.Context, noteID uuid.UUID) (*model.Note, error) {
	return r.getOne(ctx, `SELECT `+noteColumns+` FROM notes n WHERE n.id = $1`, noteID)
}

// GetManyOwned returns the owner's live notes among ids.
func (r *NoteRepo) GetManyOwned(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]model.Note, error) {
	if len(ids) == 0 {
		return []model.Note{}, nil
	}
	q := `SELECT ` + noteColumns + ` FROM notes n WHERE n.owner_id = $1 AND n.id = ANY($2) AND NOT n.is_deleted`
	return r.queryNotes(ctx, q, ownerID, ids)
}

func orderClause(sortBy model.SortField, order model.SortOrder) string {
	col := "n.updated_at"
	switch sortBy {
	case model.SortCreated:
		col = "n.created_at"
	case model.SortTitle:
		col = "lower(n.title)"
		if order == "" {
			order = model.OrderAsc
		}
	}
	dir := "DESC"
	if order == model.OrderAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY n.is_pinned DESC, %s %s, n.id", col, dir)
}

// ListOwned returns a page of the owner's live notes.
func (r *NoteRepo) ListOwned(ctx context.Context, ownerID uuid.UUID, opts model.ListOptions) (model.NotePage, error) {
	args := []any{ownerID, opts.Archived}
	where := `n.owner_id = $1 AND NOT n.is_deleted AND n.is_archived = $2`
	if opts.FolderID != nil {
		args = append(args, *opts.FolderID)
		where += fmt.Sprintf(` AND n.folder_id = $%d`, len(args))
	}
	args = append(args, model.ClampLimit(opts.Limit), max(opts.Offset, 0))
	q := fmt.Sprintf(`SELECT %s, COUNT(*) OVER () AS total FROM notes n WHERE %s %s LIMIT $%d OFFSET $%d`,
		noteColumns, where, orderClause(opts.SortBy, opts.Order), len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return model.NotePage{}, err
	}
	var (
		out   []*model.Note
		total int
	)
	for rows.Next() {
		n, err := scanNote(rows, &total)
		if err != nil {
			rows.Close()
			return model.NotePage{}, err
		}
		out = append(out, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.NotePage{}, err
	}
	if err := loadTags(ctx, r.db.Pool, out...); err != nil {
		return model.NotePage{}, err
	}
	return model.NotePage{Notes: deref(out), Total: total}, nil
}

// AllOwned returns every live note of owner.
func (r *NoteRepo) AllOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes n WHERE n.owner_id = $1 AND NOT n.is_deleted ORDER BY n.created_at`
	return r.queryNotes(ctx, q, ownerID)
}

func scanVersion(row pgx.Row) (*model.NoteVersion, error) {
	var v model.NoteVersion
	if err := row.Scan(&v.NoteID, &v.Number, &v.Title, &v.Content, &v.AuthorID, &v.ChangesSummary, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ListVersions returns all versions, newest first.
func (r *NoteRepo) ListVersions(ctx context.Context, noteID uuid.UUID) ([]model.NoteVersion, error) {
	const q = `
SELECT note_id, version_number, title, content, author_id, changes_summary, created_at
FROM note_versions WHERE note_id = $1
ORDER BY version_number DESC`
	rows, err := r.db.Pool.Query(ctx, q, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.NoteVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// GetVersion returns a single version.
func (r *NoteRepo) GetVersion(ctx context.Context, noteID uuid.UUID, number int) (*model.NoteVersion, error) {
	const q = `
SELECT note_id, version_number, title, content, author_id, changes_summary, created_at
FROM note_versions WHERE note_id = $1 AND version_number = $2`
	return scanVersion(r.db.Pool.QueryRow(ctx, q, noteID, number))
}

// IncrementViews bumps the view counter.
func (r *NoteRepo) IncrementViews(ctx context.Context, noteID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE notes SET view_count = view_count + 1 WHERE id = $1`, noteID)
	return err
}

func (r *NoteRepo) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SoftDelete moves a live note to the trash.
func (r *NoteRepo) SoftDelete(ctx context.Context, ownerID, noteID uuid.UUID, at time.Time) error {
	const q = `UPDATE notes SET is_deleted = true, deleted_at = $3, updated_at = $3
WHERE id = $1 AND owner_id = $2 AND NOT is_deleted`
	return r.execOne(ctx, q, noteID, ownerID, at)
}

// Restore brings a trashed note back.
func (r *NoteRepo) Restore(ctx context.Context, ownerID, noteID uuid.UUID, at time.Time) error {
	const q = `UPDATE notes SET is_deleted = false, deleted_at = NULL, updated_at = $3
WHERE id = $1 AND owner_id = $2 AND is_deleted`
	return r.execOne(ctx, q, noteID, ownerID, at)
}

// Purge hard-deletes a trashed note; versions and tag links cascade.
func (r *NoteRepo) Purge(ctx context.Context, ownerID, noteID uuid.UUID) error {
	const q = `DELETE FROM notes WHERE id = $1 AND owner_id = $2 AND is_deleted`
	return r.execOne(ctx, q, noteID, ownerID)
}

// noteTx implements repository.NoteTx over an open transaction.
type noteTx struct{ tx pgx.Tx }

// GetFolder returns the owner's folder.
func (t *noteTx) GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (*model.Folder, error) {
	const q = `SELECT id, owner_id, parent_id, name, created_at FROM folders WHERE id = $1 AND owner_id = $2`
	var f model.Folder
	err := t.tx.QueryRow(ctx, q, folderID, ownerID).Scan(&f.ID, &f.OwnerID, &f.ParentID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// InsertNote stores a new note row.
func (t *noteTx) InsertNote(ctx context.Context, n *model.Note) error {
	const q = `
INSERT INTO notes (id, owner_id, title, content, content_html, content_canonical, excerpt, privacy,
 password_hash, folder_id, icon, color, cover_image, word_count, reading_time,
 is_pinned, pinned_at, is_archived, archived_at, created_at, updated_at, last_edited_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`
	_, err := t.tx.Exec(ctx, q,
		n.ID, n.OwnerID, n.Title, n.Content, n.ContentHTML, n.ContentCanonical, n.Excerpt, string(n.Privacy),
		n.PasswordHash, n.FolderID, n.Icon, n.Color, n.CoverImage, n.WordCount, n.ReadingTime,
		n.IsPinned, n.PinnedAt, n.IsArchived, n.ArchivedAt, n.CreatedAt, n.UpdatedAt, n.LastEditedAt,
	)
	return err
}

// LockNote loads a live owned note with FOR UPDATE.
func (t *noteTx) LockNote(ctx context.Context, ownerID, noteID uuid.UUID) (*model.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes n
WHERE n.id = $1 AND n.owner_id = $2 AND NOT n.is_deleted
FOR UPDATE OF n`
	n, err := scanNote(t.tx.QueryRow(ctx, q, noteID, ownerID))
	if err != nil {
		return nil, err
	}
	if err := loadTags(ctx, t.tx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNote writes every mutable column.
func (t *noteTx) UpdateNote(ctx context.Context, n *model.Note) error {
	const q = `
UPDATE notes SET title = $3, content = $4, content_html = $5, content_canonical = $6, excerpt = $7,
 privacy = $8, password_hash = $9, folder_id = $10, icon = $11, color = $12, cover_image = $13,
 word_count = $14, reading_time = $15, is_pinned = $16, pinned_at = $17, is_archived = $18,
 archived_at = $19, updated_at = $20, last_edited_at = $21
WHERE id = $1 AND owner_id = $2`
	tag, err := t.tx.Exec(ctx, q,
		n.ID, n.OwnerID, n.Title, n.Content, n.ContentHTML, n.ContentCanonical, n.Excerpt,
		string(n.Privacy), n.PasswordHash, n.FolderID, n.Icon, n.Color, n.CoverImage,
		n.WordCount, n.ReadingTime, n.IsPinned, n.PinnedAt, n.IsArchived,
		n.ArchivedAt, n.UpdatedAt, n.LastEditedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MaxVersion returns the highest version number, 0 when none.
func (t *noteTx) MaxVersion(ctx context.Context, noteID uuid.UUID) (int, error) {
	const q = `SELECT COALESCE(MAX(version_number), 0) FROM note_versions WHERE note_id = $1`
	var v int
	if err := t.tx.QueryRow(ctx, q, noteID).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// InsertVersion appends a version row.
func (t *noteTx) InsertVersion(ctx context.Context, v *model.NoteVersion) error {
	const q = `
INSERT INTO note_versions (note_id, version_number, title, content, author_id, changes_summary, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := t.tx.Exec(ctx, q, v.NoteID, v.Number, v.Title, v.Content, v.AuthorID, v.ChangesSummary, v.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("version %d of note %s: %w", v.Number, v.NoteID, errs.ErrVersionConflict)
	}
	return err
}

// ReplaceTags relinks the note to exactly tags.
func (t *noteTx) ReplaceTags(ctx context.Context, ownerID, noteID uuid.UUID, tags []model.Tag) ([]model.Tag, error) {
	const del = `DELETE FROM note_tags WHERE note_id = $1`
	const upsert = `
INSERT INTO tags (id, owner_id, name, color, created_at) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (owner_id, name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, color, created_at`
	const link = `INSERT INTO note_tags (note_id, tag_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`

	if _, err := t.tx.Exec(ctx, del, noteID); err != nil {
		return nil, err
	}
	out := make([]model.Tag, 0, len(tags))
	for _, tg := range tags {
		tg.OwnerID = ownerID
		if err := t.tx.QueryRow(ctx, upsert, tg.ID, ownerID, tg.Name, tg.Color, tg.CreatedAt).
			Scan(&tg.ID, &tg.Color, &tg.CreatedAt); err != nil {
			return nil, fmt.Errorf("upsert tag %q: %w", tg.Name, err)
		}
		if _, err := t.tx.Exec(ctx, link, noteID, tg.ID); err != nil {
			return nil, fmt.Errorf("link tag %q: %w", tg.Name, err)
		}
		out = append(out, tg)
	}
	return out, nil
}
