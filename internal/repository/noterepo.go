// Package repository declares the record store contracts used by services.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/model"
)

// NoteRepository provides transactional access to notes, versions and tag links.
type NoteRepository interface {
	// InTx runs fn inside one transaction. Any error returned by fn rolls back every write.
	InTx(ctx context.Context, fn func(tx NoteTx) error) error

	// GetVisible returns a live note that caller may read: owner, PUBLIC, active
	// collaborator, or any usable share link. ErrNotFound otherwise.
	GetVisible(ctx context.Context, callerID, noteID uuid.UUID, now time.Time) (*model.Note, error)

	// GetByShareToken returns the live note behind a usable share link.
	GetByShareToken(ctx context.Context, token string, now time.Time) (*model.Note, error)

	// GetAny returns a note regardless of owner and deletion state.
	GetAny(ctx context.Context, noteID uuid.UUID) (*model.Note, error)

	// GetManyOwned returns the live notes of owner among ids, in no particular order.
	GetManyOwned(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]model.Note, error)

	// ListOwned returns a page of the owner's live notes, pinned first.
	ListOwned(ctx context.Context, ownerID uuid.UUID, opts model.ListOptions) (model.NotePage, error)

	// AllOwned returns every live note of owner.
	AllOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error)

	// ListVersions returns all versions of a note, newest first.
	ListVersions(ctx context.Context, noteID uuid.UUID) ([]model.NoteVersion, error)

	// GetVersion returns a single version by number.
	GetVersion(ctx context.Context, noteID uuid.UUID, number int) (*model.NoteVersion, error)

	// IncrementViews bumps the view counter.
	IncrementViews(ctx context.Context, noteID uuid.UUID) error

	// SoftDelete moves a live note to the trash. ErrNotFound unless live and owned.
	SoftDelete(ctx context.Context, ownerID, noteID uuid.UUID, at time.Time) error

	// Restore brings a trashed note back. ErrNotFound unless trashed and owned.
	Restore(ctx context.Context, ownerID, noteID uuid.UUID, at time.Time) error

	// Purge hard-deletes a trashed note with its versions and tag links.
	// ErrNotFound unless trashed and owned.
	Purge(ctx context.Context, ownerID, noteID uuid.UUID) error
}

// NoteTx is the set of writes available inside NoteRepository.InTx.
type NoteTx interface {
	// GetFolder returns the owner's folder. ErrNotFound when missing or foreign.
	GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (*model.Folder, error)

	// InsertNote stores a new note row.
	InsertNote(ctx context.Context, n *model.Note) error

	// LockNote loads a live owned note and locks its row until commit.
	LockNote(ctx context.Context, ownerID, noteID uuid.UUID) (*model.Note, error)

	// UpdateNote writes every mutable column of n.
	UpdateNote(ctx context.Context, n *model.Note) error

	// MaxVersion returns the highest version number of the note, 0 when none.
	MaxVersion(ctx context.Context, noteID uuid.UUID) (int, error)

	// InsertVersion appends a version row.
	InsertVersion(ctx context.Context, v *model.NoteVersion) error

	// ReplaceTags drops every tag link of the note and links tags instead, creating
	// missing tags. Existing tags keep their original color. Returns the linked tags.
	ReplaceTags(ctx context.Context, ownerID, noteID uuid.UUID, tags []model.Tag) ([]model.Tag, error)
}

// FolderRepository manages owner folders.
type FolderRepository interface {
	CreateFolder(ctx context.Context, f *model.Folder) error
	ListFolders(ctx context.Context, ownerID uuid.UUID) ([]model.Folder, error)
}
