package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/policy"
	"github.com/and161185/notekeeper/internal/search"
)

// ownerOnly loads the note in any state and checks the caller owns it.
// Non-owners get ErrForbidden when they can currently read it, ErrNotFound otherwise.
func (s *NoteServiceImpl) ownerOnly(ctx context.Context, callerID, noteID uuid.UUID) (*model.Note, error) {
	if callerID == uuid.Nil || noteID == uuid.Nil {
		return nil, fmt.Errorf("empty caller or note id: %w", errs.ErrInvalid)
	}
	n, err := s.notes.GetAny(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n.OwnerID == callerID {
		return n, nil
	}
	collab, links, err := s.grants.Grants(ctx, callerID, noteID)
	if err != nil {
		return nil, fmt.Errorf("load grants: %w", err)
	}
	return nil, policy.OwnerOnly(callerID, n, policy.Grants{Collaboration: collab, ShareLinks: links}, s.now())
}

// Delete soft-deletes a live note.
func (s *NoteServiceImpl) Delete(ctx context.Context, callerID, noteID uuid.UUID) error {
	if _, err := s.ownerOnly(ctx, callerID, noteID); err != nil {
		return err
	}
	if err := s.notes.SoftDelete(ctx, callerID, noteID, s.now().UTC()); err != nil {
		return err
	}
	s.unindexNote(ctx, noteID)
	s.invalidate(ctx, callerID, noteID)
	s.tracker.Track(callerID, noteID, model.ActionDeleted, nil)
	return nil
}

// Restore brings a trashed note back and re-indexes it.
func (s *NoteServiceImpl) Restore(ctx context.Context, callerID, noteID uuid.UUID) (*model.Note, error) {
	if _, err := s.ownerOnly(ctx, callerID, noteID); err != nil {
		return nil, err
	}
	if err := s.notes.Restore(ctx, callerID, noteID, s.now().UTC()); err != nil {
		return nil, err
	}
	n, err := s.notes.GetAny(ctx, noteID)
	if err != nil {
		return nil, err
	}
	s.indexNote(ctx, n, s.folderNames(ctx, callerID)[folderKey(n.FolderID)])
	s.invalidate(ctx, callerID, noteID)
	s.tracker.Track(callerID, noteID, model.ActionRestored, nil)
	return n, nil
}

// PermanentDelete hard-deletes a trashed note with its versions and tag links.
func (s *NoteServiceImpl) PermanentDelete(ctx context.Context, callerID, noteID uuid.UUID) error {
	if _, err := s.ownerOnly(ctx, callerID, noteID); err != nil {
		return err
	}
	if err := s.notes.Purge(ctx, callerID, noteID); err != nil {
		return err
	}
	s.unindexNote(ctx, noteID)
	s.invalidate(ctx, callerID, noteID)
	s.tracker.Track(callerID, noteID, model.ActionPurged, nil)
	return nil
}

// ReindexOwner rebuilds every live index document of the owner in one batch
// and drops documents of notes that are no longer live.
func (s *NoteServiceImpl) ReindexOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	if ownerID == uuid.Nil {
		return 0, fmt.Errorf("empty owner: %w", errs.ErrInvalid)
	}
	notes, err := s.notes.AllOwned(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	names := s.folderNames(ctx, ownerID)
	live := make(map[uuid.UUID]struct{}, len(notes))
	docs := make([]search.Document, 0, len(notes))
	for i := range notes {
		live[notes[i].ID] = struct{}{}
		docs = append(docs, search.NewDocument(&notes[i], names[folderKey(notes[i].FolderID)]))
	}

	indexed, err := s.index.OwnedIDs(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("reindex: %w", err)
	}
	stale := 0
	for _, id := range indexed {
		if _, ok := live[id]; !ok {
			docs = append(docs, search.Document{ID: id, OwnerID: ownerID, IsDeleted: true})
			stale++
		}
	}

	if err := s.index.IndexBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("reindex: %w", err)
	}
	s.log.Info("owner reindexed", zap.String("ownerId", ownerID.String()),
		zap.Int("notes", len(live)), zap.Int("stale", stale))
	return len(live), nil
}

func folderKey(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

// folderNames maps the owner's folder ids to names. Lookup failures yield an empty map.
func (s *NoteServiceImpl) folderNames(ctx context.Context, ownerID uuid.UUID) map[uuid.UUID]string {
	out := map[uuid.UUID]string{}
	fs, err := s.folders.ListFolders(ctx, ownerID)
	if err != nil {
		s.log.Warn("list folders failed", zap.String("ownerId", ownerID.String()), zap.Error(err))
		return out
	}
	for _, f := range fs {
		out[f.ID] = f.Name
	}
	return out
}
