// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Privacy controls who besides the owner may read a note.
type Privacy string

const (
	PrivacyPrivate Privacy = "PRIVATE"
	PrivacyPublic  Privacy = "PUBLIC"
	PrivacyShared  Privacy = "SHARED"
)

// Valid reports whether p is one of the known privacy levels.
func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPrivate, PrivacyPublic, PrivacyShared:
		return true
	}
	return false
}

// Note is a single Markdown document with derived fields and lifecycle flags.
type Note struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"ownerId"`

	Title            string `json:"title"`
	Content          string `json:"content"`          // raw Markdown as submitted
	ContentHTML      string `json:"contentHtml"`      // sanitized HTML rendering
	ContentCanonical string `json:"contentCanonical"` // normalized Markdown
	Excerpt          string `json:"excerpt"`

	Privacy      Privacy    `json:"privacy"`
	PasswordHash string     `json:"passwordHash,omitempty"` // encoded argon2id, empty = no password
	FolderID     *uuid.UUID `json:"folderId,omitempty"`

	Icon       string `json:"icon,omitempty"`
	Color      string `json:"color,omitempty"`
	CoverImage string `json:"coverImage,omitempty"`

	WordCount   int `json:"wordCount"`
	ReadingTime int `json:"readingTime"` // minutes

	IsPinned   bool       `json:"isPinned"`
	PinnedAt   *time.Time `json:"pinnedAt,omitempty"`
	IsArchived bool       `json:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	IsDeleted  bool       `json:"isDeleted"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`

	ViewCount    int64     `json:"viewCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastEditedAt time.Time `json:"lastEditedAt"`

	// Relations, filled on reads.
	Tags         []Tag `json:"tags"`
	VersionCount int   `json:"versionCount"`
}

// HasPassword reports whether reads by non-owners are password gated.
func (n *Note) HasPassword() bool { return n.PasswordHash != "" }

// TagNames returns the names of the attached tags in order.
func (n *Note) TagNames() []string {
	out := make([]string, 0, len(n.Tags))
	for _, t := range n.Tags {
		out = append(out, t.Name)
	}
	return out
}

// NoteVersion is an immutable title+content snapshot. Numbers start at 1 and have no gaps.
type NoteVersion struct {
	NoteID         uuid.UUID `json:"noteId"`
	Number         int       `json:"versionNumber"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	AuthorID       uuid.UUID `json:"authorId"`
	ChangesSummary string    `json:"changesSummary"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Tag is an owner-scoped label, unique per owner by lowercased name.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

// Folder is an owner-scoped container for notes.
type Folder struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"ownerId"`
	ParentID  *uuid.UUID `json:"parentId,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Permission is the level granted to a collaborator.
type Permission string

const (
	PermissionRead  Permission = "READ"
	PermissionWrite Permission = "WRITE"
)

// Collaboration grants a user access to someone else's note.
type Collaboration struct {
	NoteID     uuid.UUID  `json:"noteId"`
	UserID     uuid.UUID  `json:"userId"`
	Permission Permission `json:"permission"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ShareLink grants read access to anyone presenting Token while active and unexpired.
type ShareLink struct {
	ID        uuid.UUID  `json:"id"`
	NoteID    uuid.UUID  `json:"noteId"`
	Token     string     `json:"token"`
	IsActive  bool       `json:"isActive"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"` // nil = never
	CreatedBy uuid.UUID  `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Usable reports whether the link still grants access at now.
func (l ShareLink) Usable(now time.Time) bool {
	return l.IsActive && (l.ExpiresAt == nil || l.ExpiresAt.After(now))
}

// Enrichment is the last analysis result produced by the AI service for a note.
type Enrichment struct {
	NoteID    uuid.UUID `json:"noteId"`
	Keywords  []string  `json:"keywords"`
	Summary   string    `json:"summary"`
	Sentiment string    `json:"sentiment"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Action names an audited note operation.
type Action string

const (
	ActionCreated         Action = "created"
	ActionUpdated         Action = "updated"
	ActionViewed          Action = "viewed"
	ActionDeleted         Action = "deleted"
	ActionRestored        Action = "restored"
	ActionPurged          Action = "purged"
	ActionDuplicated      Action = "duplicated"
	ActionVersionRestored Action = "version_restored"
	ActionShared          Action = "shared"
)

// ActivityEvent is a single audit log entry.
type ActivityEvent struct {
	UserID    uuid.UUID
	NoteID    uuid.UUID
	Action    Action
	Metadata  map[string]string
	CreatedAt time.Time
}
