package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/crypto"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

const (
	shareTokenBytes    = 24
	shareTokenAttempts = 3
	maxFolderName      = 255
)

func newShareToken() (string, error) {
	b, err := crypto.RandBytes(shareTokenBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateShareLink issues a random URL-safe token for the owner's note.
func (s *NoteServiceImpl) CreateShareLink(ctx context.Context, callerID, noteID uuid.UUID, ttl time.Duration) (*model.ShareLink, error) {
	n, err := s.ownerOnly(ctx, callerID, noteID)
	if err != nil {
		return nil, err
	}
	if n.IsDeleted {
		return nil, errs.ErrNotFound
	}
	now := s.now().UTC()
	l := &model.ShareLink{
		ID:        uuid.Must(uuid.NewV4()),
		NoteID:    noteID,
		IsActive:  true,
		CreatedBy: callerID,
		CreatedAt: now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		l.ExpiresAt = &exp
	}
	for attempt := 0; ; attempt++ {
		if l.Token, err = newShareToken(); err != nil {
			return nil, fmt.Errorf("share token: %w", err)
		}
		err = s.grants.CreateShareLink(ctx, l)
		if err == nil {
			break
		}
		if !errors.Is(err, errs.ErrAlreadyExists) || attempt+1 >= shareTokenAttempts {
			return nil, err
		}
	}
	s.invalidate(ctx, callerID, noteID)
	s.tracker.Track(callerID, noteID, model.ActionShared, map[string]string{"link": l.ID.String()})
	return l, nil
}

// RevokeShareLink deactivates one link of the owner's note.
func (s *NoteServiceImpl) RevokeShareLink(ctx context.Context, callerID, noteID, linkID uuid.UUID) error {
	if _, err := s.ownerOnly(ctx, callerID, noteID); err != nil {
		return err
	}
	if err := s.grants.DeactivateShareLink(ctx, noteID, linkID); err != nil {
		return err
	}
	s.invalidate(ctx, callerID, noteID)
	return nil
}

// AddCollaborator grants userID access to the owner's note.
func (s *NoteServiceImpl) AddCollaborator(ctx context.Context, callerID, noteID, userID uuid.UUID, perm model.Permission) error {
	if userID == uuid.Nil || userID == callerID {
		return fmt.Errorf("collaborator %s: %w", userID, errs.ErrInvalid)
	}
	if perm == "" {
		perm = model.PermissionRead
	}
	if perm != model.PermissionRead && perm != model.PermissionWrite {
		return fmt.Errorf("permission %q: %w", perm, errs.ErrInvalid)
	}
	n, err := s.ownerOnly(ctx, callerID, noteID)
	if err != nil {
		return err
	}
	if n.IsDeleted {
		return errs.ErrNotFound
	}
	c := &model.Collaboration{NoteID: noteID, UserID: userID, Permission: perm, IsActive: true, CreatedAt: s.now().UTC()}
	if err := s.grants.UpsertCollaboration(ctx, c); err != nil {
		return err
	}
	s.invalidate(ctx, callerID, noteID)
	s.tracker.Track(callerID, noteID, model.ActionShared, map[string]string{"user": userID.String()})
	return nil
}

// RemoveCollaborator revokes userID's access.
func (s *NoteServiceImpl) RemoveCollaborator(ctx context.Context, callerID, noteID, userID uuid.UUID) error {
	if _, err := s.ownerOnly(ctx, callerID, noteID); err != nil {
		return err
	}
	if err := s.grants.DeactivateCollaboration(ctx, noteID, userID); err != nil {
		return err
	}
	s.invalidate(ctx, callerID, noteID)
	return nil
}

// CreateFolder adds a folder; a foreign parent is not found.
func (s *NoteServiceImpl) CreateFolder(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if ownerID == uuid.Nil || name == "" || len(name) > maxFolderName {
		return nil, fmt.Errorf("folder name: %w", errs.ErrInvalid)
	}
	f := &model.Folder{
		ID:        uuid.Must(uuid.NewV4()),
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.folders.CreateFolder(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ListFolders returns the owner's folders by name.
func (s *NoteServiceImpl) ListFolders(ctx context.Context, ownerID uuid.UUID) ([]model.Folder, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("empty owner: %w", errs.ErrInvalid)
	}
	return s.folders.ListFolders(ctx, ownerID)
}
