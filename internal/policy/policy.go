// Package policy decides who may read or change a note.
//
// Every function here is pure: it looks only at the facts passed in. The
// postgres visibility predicate mirrors CanRead so that reads served from the
// database and decisions taken in process agree.
package policy

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/crypto"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

// Grants are the access facts for one caller and one note.
type Grants struct {
	// Collaboration is the caller's own collaboration row, nil when none exists.
	Collaboration *model.Collaboration
	// ShareLinks are all links of the note.
	ShareLinks []model.ShareLink
}

// HasActiveShare reports whether any link of the note is usable at now.
func (g Grants) HasActiveShare(now time.Time) bool {
	for _, l := range g.ShareLinks {
		if l.Usable(now) {
			return true
		}
	}
	return false
}

// CanRead reports whether caller may read n.
func CanRead(caller uuid.UUID, n *model.Note, g Grants, now time.Time) bool {
	if n == nil || n.IsDeleted {
		return false
	}
	if n.OwnerID == caller || n.Privacy == model.PrivacyPublic {
		return true
	}
	if c := g.Collaboration; c != nil && c.IsActive && c.UserID == caller && c.NoteID == n.ID {
		return true
	}
	return g.HasActiveShare(now)
}

// CanWrite reports whether caller may change n. Only the owner ever may.
func CanWrite(caller uuid.UUID, n *model.Note) bool {
	return n != nil && n.OwnerID == caller
}

// AllowCached reports whether a cached snapshot may be served to caller without
// consulting the record store. Grants are not re-evaluated here: non-owners are
// served from cache only for PUBLIC snapshots.
func AllowCached(caller uuid.UUID, n *model.Note) bool {
	return n != nil && !n.IsDeleted && (n.OwnerID == caller || n.Privacy == model.PrivacyPublic)
}

// NeedsPassword reports whether caller must present the note password.
func NeedsPassword(caller uuid.UUID, n *model.Note) bool {
	return n.HasPassword() && n.OwnerID != caller
}

// CheckPassword enforces the password gate for non-owners.
func CheckPassword(caller uuid.UUID, n *model.Note, password *string) error {
	if !NeedsPassword(caller, n) {
		return nil
	}
	if password == nil || *password == "" {
		return fmt.Errorf("password required: %w", errs.ErrUnauthorized)
	}
	ok, err := crypto.Verify(*password, n.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify note password: %w", err)
	}
	if !ok {
		return fmt.Errorf("wrong password: %w", errs.ErrUnauthorized)
	}
	return nil
}

// OwnerOnly gates owner-only operations. A non-owner who can currently read the
// note gets ErrForbidden; everyone else, including for trashed notes, gets ErrNotFound.
func OwnerOnly(caller uuid.UUID, n *model.Note, g Grants, now time.Time) error {
	if n == nil {
		return errs.ErrNotFound
	}
	if n.OwnerID == caller {
		return nil
	}
	if !CanRead(caller, n, g, now) {
		return errs.ErrNotFound
	}
	return errs.ErrForbidden
}
