package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/crypto"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/render"
	"github.com/and161185/notekeeper/internal/repository"
)

const (
	untitled   = "Untitled"
	copySuffix = " (Copy)"
)

func normalizeTitle(t string) string {
	if t = strings.TrimSpace(t); t == "" {
		return untitled
	}
	return t
}

// ownedFolder loads the owner's folder. A foreign or unknown folder is both
// invalid input and not found.
func ownedFolder(ctx context.Context, tx repository.NoteTx, ownerID, folderID uuid.UUID) (*model.Folder, error) {
	f, err := tx.GetFolder(ctx, ownerID, folderID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("folder %s: %w: %w", folderID, errs.ErrInvalid, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load folder: %w", err)
	}
	return f, nil
}

func applyDerived(n *model.Note, d render.Derived) {
	n.ContentHTML = d.HTML
	n.ContentCanonical = d.Canonical
	n.Excerpt = d.Excerpt
	n.WordCount = d.WordCount
	n.ReadingTime = d.ReadingTime
}

func hashPassword(pw *string) (string, error) {
	if pw == nil || *pw == "" {
		return "", nil
	}
	h, err := crypto.EncodeHash(*pw)
	if err != nil {
		return "", fmt.Errorf("hash note password: %w", err)
	}
	return h, nil
}

// Create validates input and stores the note, version 1 and tag links atomically.
func (s *NoteServiceImpl) Create(ctx context.Context, ownerID uuid.UUID, in model.CreateNoteInput) (*model.Note, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("empty owner: %w", errs.ErrInvalid)
	}
	privacy := in.Privacy
	if privacy == "" {
		privacy = model.PrivacyPrivate
	}
	if !privacy.Valid() {
		return nil, fmt.Errorf("privacy %q: %w", privacy, errs.ErrInvalid)
	}
	derived, err := s.render.Derive(in.Content)
	if err != nil {
		return nil, fmt.Errorf("render content: %w", err)
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	n := &model.Note{
		ID:           uuid.Must(uuid.NewV4()),
		OwnerID:      ownerID,
		Title:        normalizeTitle(in.Title),
		Content:      in.Content,
		Privacy:      privacy,
		PasswordHash: hash,
		FolderID:     in.FolderID,
		Icon:         in.Icon,
		Color:        in.Color,
		CoverImage:   in.CoverImage,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastEditedAt: now,
	}
	applyDerived(n, derived)
	tags := newTags(ownerID, in.Tags, now)

	var folderName string
	err = s.notes.InTx(ctx, func(tx repository.NoteTx) error {
		if n.FolderID != nil {
			f, err := ownedFolder(ctx, tx, ownerID, *n.FolderID)
			if err != nil {
				return err
			}
			folderName = f.Name
		}
		if err := tx.InsertNote(ctx, n); err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
		v := &model.NoteVersion{
			NoteID: n.ID, Number: 1, Title: n.Title, Content: n.Content,
			AuthorID: ownerID, ChangesSummary: initialSummary, CreatedAt: now,
		}
		if err := tx.InsertVersion(ctx, v); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
		linked, err := tx.ReplaceTags(ctx, ownerID, n.ID, tags)
		if err != nil {
			return fmt.Errorf("link tags: %w", err)
		}
		n.Tags = linked
		n.VersionCount = 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.indexNote(ctx, n, folderName)
	s.invalidate(ctx, ownerID, uuid.Nil)
	s.enricher.Schedule(n.ID, n.Title, n.Content)
	s.tracker.Track(ownerID, n.ID, model.ActionCreated, nil)
	s.log.Debug("note created", zap.String("noteId", n.ID.String()), zap.String("ownerId", ownerID.String()))
	return n, nil
}

// Update applies in to the owner's note under a row lock.
func (s *NoteServiceImpl) Update(ctx context.Context, ownerID, noteID uuid.UUID, in model.UpdateNoteInput) (*model.Note, error) {
	n, changed, err := s.update(ctx, ownerID, noteID, in, "")
	if err != nil {
		return nil, err
	}
	s.tracker.Track(ownerID, noteID, model.ActionUpdated, map[string]string{"contentChanged": fmt.Sprint(changed)})
	return n, nil
}

// update is the shared write path. A non-empty forceSummary appends a version
// with that summary even when the content is unchanged.
func (s *NoteServiceImpl) update(ctx context.Context, ownerID, noteID uuid.UUID, in model.UpdateNoteInput, forceSummary string) (*model.Note, bool, error) {
	if ownerID == uuid.Nil || noteID == uuid.Nil {
		return nil, false, fmt.Errorf("empty owner or note id: %w", errs.ErrInvalid)
	}
	if in.Privacy != nil && !in.Privacy.Valid() {
		return nil, false, fmt.Errorf("privacy %q: %w", *in.Privacy, errs.ErrInvalid)
	}

	var (
		contentChanged bool
		newHash        string
	)
	if in.Password != nil {
		h, err := hashPassword(in.Password.Value)
		if err != nil {
			return nil, false, err
		}
		newHash = h
	}

	now := s.now().UTC()
	var out *model.Note
	var folderName string
	err := s.notes.InTx(ctx, func(tx repository.NoteTx) error {
		n, err := tx.LockNote(ctx, ownerID, noteID)
		if err != nil {
			return err
		}
		if in.IfVersion != nil && *in.IfVersion != n.VersionCount {
			return fmt.Errorf("note at version %d, expected %d: %w", n.VersionCount, *in.IfVersion, errs.ErrVersionConflict)
		}
		before := *n

		if in.FolderID != nil {
			n.FolderID = in.FolderID.Value
		}
		if n.FolderID != nil {
			f, err := ownedFolder(ctx, tx, ownerID, *n.FolderID)
			switch {
			case err == nil:
				folderName = f.Name
			case in.FolderID != nil:
				return err
			}
		}
		if in.Title != nil {
			n.Title = normalizeTitle(*in.Title)
		}
		if in.Content != nil && *in.Content != n.Content {
			d, err := s.render.Derive(*in.Content)
			if err != nil {
				return fmt.Errorf("render content: %w", err)
			}
			n.Content = *in.Content
			applyDerived(n, d)
			contentChanged = true
		}
		if in.Privacy != nil {
			n.Privacy = *in.Privacy
		}
		if in.Password != nil {
			n.PasswordHash = newHash
		}
		if in.Icon != nil {
			n.Icon = *in.Icon
		}
		if in.Color != nil {
			n.Color = *in.Color
		}
		if in.CoverImage != nil {
			n.CoverImage = *in.CoverImage
		}
		if in.IsPinned != nil && *in.IsPinned != n.IsPinned {
			n.IsPinned = *in.IsPinned
			n.PinnedAt = stamp(n.IsPinned, now)
		}
		if in.IsArchived != nil && *in.IsArchived != n.IsArchived {
			n.IsArchived = *in.IsArchived
			n.ArchivedAt = stamp(n.IsArchived, now)
		}
		n.UpdatedAt = now
		if contentChanged || n.Title != before.Title {
			n.LastEditedAt = now
		}
		if err := tx.UpdateNote(ctx, n); err != nil {
			return fmt.Errorf("update note: %w", err)
		}

		if contentChanged || forceSummary != "" {
			maxVer, err := tx.MaxVersion(ctx, noteID)
			if err != nil {
				return fmt.Errorf("max version: %w", err)
			}
			summary := forceSummary
			if summary == "" {
				summary = changeSummary(&before, n)
			}
			v := &model.NoteVersion{
				NoteID: noteID, Number: maxVer + 1, Title: n.Title, Content: n.Content,
				AuthorID: ownerID, ChangesSummary: summary, CreatedAt: now,
			}
			if err := tx.InsertVersion(ctx, v); err != nil {
				return fmt.Errorf("insert version: %w", err)
			}
			n.VersionCount = v.Number
		}

		if in.Tags != nil {
			linked, err := tx.ReplaceTags(ctx, ownerID, noteID, newTags(ownerID, *in.Tags, now))
			if err != nil {
				return fmt.Errorf("replace tags: %w", err)
			}
			n.Tags = linked
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.indexNote(ctx, out, folderName)
	s.invalidate(ctx, ownerID, noteID)
	if contentChanged {
		s.enricher.Schedule(out.ID, out.Title, out.Content)
	}
	return out, contentChanged, nil
}

func stamp(on bool, now time.Time) *time.Time {
	if !on {
		return nil
	}
	return &now
}

// RestoreVersion re-applies version number's title and content as a new version.
func (s *NoteServiceImpl) RestoreVersion(ctx context.Context, callerID, noteID uuid.UUID, number int) (*model.Note, error) {
	if _, err := s.ownerOnly(ctx, callerID, noteID); err != nil {
		return nil, err
	}
	v, err := s.notes.GetVersion(ctx, noteID, number)
	if err != nil {
		return nil, err
	}
	in := model.UpdateNoteInput{Title: &v.Title, Content: &v.Content}
	n, _, err := s.update(ctx, callerID, noteID, in, fmt.Sprintf("Restored from version %d", number))
	if err != nil {
		return nil, err
	}
	s.tracker.Track(callerID, noteID, model.ActionVersionRestored, map[string]string{"from": fmt.Sprint(number)})
	return n, nil
}

// Duplicate copies a readable note into a new private note owned by the caller,
// then re-applies the source tag names.
func (s *NoteServiceImpl) Duplicate(ctx context.Context, callerID, noteID uuid.UUID, password *string) (*model.Note, error) {
	src, err := s.Get(ctx, callerID, noteID, password)
	if err != nil {
		return nil, err
	}
	in := model.CreateNoteInput{
		Title:   src.Title + copySuffix,
		Content: src.Content,
		Privacy: model.PrivacyPrivate,
		Icon:    src.Icon,
		Color:   src.Color,
	}
	if src.OwnerID == callerID {
		in.FolderID = src.FolderID
	}
	dup, err := s.Create(ctx, callerID, in)
	if err != nil {
		return nil, err
	}
	if names := src.TagNames(); len(names) > 0 {
		dup, err = s.Update(ctx, callerID, dup.ID, model.UpdateNoteInput{Tags: &names})
		if err != nil {
			return nil, fmt.Errorf("copy tags: %w", err)
		}
	}
	s.tracker.Track(callerID, dup.ID, model.ActionDuplicated, map[string]string{"source": noteID.String()})
	return dup, nil
}
