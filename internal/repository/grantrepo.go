package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/model"
)

// GrantRepository stores share links and collaboration grants.
type GrantRepository interface {
	// Grants returns the caller's collaboration on the note (nil if none) and all share links of the note.
	Grants(ctx context.Context, callerID, noteID uuid.UUID) (*model.Collaboration, []model.ShareLink, error)

	// CreateShareLink stores a new link. ErrAlreadyExists on token collision.
	CreateShareLink(ctx context.Context, l *model.ShareLink) error

	// DeactivateShareLink revokes a link of the note. ErrNotFound when no such active link.
	DeactivateShareLink(ctx context.Context, noteID, linkID uuid.UUID) error

	// UpsertCollaboration grants or re-activates access for a user.
	UpsertCollaboration(ctx context.Context, c *model.Collaboration) error

	// DeactivateCollaboration revokes a user's access. ErrNotFound when not active.
	DeactivateCollaboration(ctx context.Context, noteID, userID uuid.UUID) error
}

// EnrichmentRepository persists analysis results.
type EnrichmentRepository interface {
	SaveEnrichment(ctx context.Context, e model.Enrichment) error
	GetEnrichment(ctx context.Context, noteID uuid.UUID) (*model.Enrichment, error)
}

// ActivityRepository appends audit events.
type ActivityRepository interface {
	InsertActivity(ctx context.Context, ev model.ActivityEvent) error
}
