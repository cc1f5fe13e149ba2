package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/notekeeper/internal/activity"
	"github.com/and161185/notekeeper/internal/cache"
	"github.com/and161185/notekeeper/internal/enrich"
	"github.com/and161185/notekeeper/internal/limiter"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/render"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/search"
)

// NoteService is the note lifecycle: writes go to the record store first,
// then to the search index and cache on a best-effort basis.
type NoteService interface {
	// Create stores a note with its first version and tags.
	Create(ctx context.Context, ownerID uuid.UUID, in model.CreateNoteInput) (*model.Note, error)
	// Update applies a partial update, appending a version when content changes.
	Update(ctx context.Context, ownerID, noteID uuid.UUID, in model.UpdateNoteInput) (*model.Note, error)
	// Get returns a readable note, enforcing the password gate for non-owners.
	Get(ctx context.Context, callerID, noteID uuid.UUID, password *string) (*model.Note, error)
	// GetShared returns the note behind a share link token.
	GetShared(ctx context.Context, callerID uuid.UUID, token string, password *string) (*model.Note, error)
	// List returns a page of the owner's live notes.
	List(ctx context.Context, ownerID uuid.UUID, opts model.ListOptions) (model.NotePage, error)
	// Search runs a full-text query over the caller's notes.
	Search(ctx context.Context, opts model.SearchOptions) (model.SearchResult, error)

	// Delete moves a note to the trash.
	Delete(ctx context.Context, callerID, noteID uuid.UUID) error
	// Restore takes a note out of the trash.
	Restore(ctx context.Context, callerID, noteID uuid.UUID) (*model.Note, error)
	// PermanentDelete removes a trashed note for good.
	PermanentDelete(ctx context.Context, callerID, noteID uuid.UUID) error

	// ListVersions returns the version history, newest first.
	ListVersions(ctx context.Context, callerID, noteID uuid.UUID, password *string) ([]model.NoteVersion, error)
	// RestoreVersion re-applies an old version as a new one.
	RestoreVersion(ctx context.Context, callerID, noteID uuid.UUID, number int) (*model.Note, error)
	// Duplicate copies a readable note into a new private note of the caller.
	Duplicate(ctx context.Context, callerID, noteID uuid.UUID, password *string) (*model.Note, error)

	// ReindexOwner rebuilds the index documents of every live note of the owner.
	ReindexOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	// GetEnrichment returns the stored analysis of a readable note.
	GetEnrichment(ctx context.Context, callerID, noteID uuid.UUID, password *string) (*model.Enrichment, error)

	// CreateShareLink issues a share token; ttl <= 0 never expires.
	CreateShareLink(ctx context.Context, callerID, noteID uuid.UUID, ttl time.Duration) (*model.ShareLink, error)
	// RevokeShareLink deactivates a share link.
	RevokeShareLink(ctx context.Context, callerID, noteID, linkID uuid.UUID) error
	// AddCollaborator grants another user access.
	AddCollaborator(ctx context.Context, callerID, noteID, userID uuid.UUID, perm model.Permission) error
	// RemoveCollaborator revokes a collaborator.
	RemoveCollaborator(ctx context.Context, callerID, noteID, userID uuid.UUID) error

	// CreateFolder adds a folder for the owner.
	CreateFolder(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (*model.Folder, error)
	// ListFolders returns the owner's folders.
	ListFolders(ctx context.Context, ownerID uuid.UUID) ([]model.Folder, error)
}

// Config tunes caching, side-effect and shared-read budgets.
type Config struct {
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	SideEffectTimeout time.Duration `yaml:"side_effect_timeout"`
	// SharedReadTimeout bounds a store read shared by coalesced callers.
	SharedReadTimeout time.Duration `yaml:"shared_read_timeout"`
}

// DefaultConfig returns a five minute cache TTL, a two second side-effect budget
// and a five second shared-read budget.
func DefaultConfig() Config {
	return Config{CacheTTL: 5 * time.Minute, SideEffectTimeout: 2 * time.Second, SharedReadTimeout: 5 * time.Second}
}

// Deps are the collaborators of NoteServiceImpl. Enricher, Tracker and
// Limiter default to no-ops when nil.
type Deps struct {
	Notes       repository.NoteRepository
	Grants      repository.GrantRepository
	Folders     repository.FolderRepository
	Enrichments repository.EnrichmentRepository
	Cache       cache.Cache
	Index       search.Index
	Renderer    *render.Renderer
	Limiter     limiter.Limiter
	Enricher    enrich.Scheduler
	Tracker     activity.Tracker
	Log         *zap.Logger
}

// NoteServiceImpl implements NoteService.
type NoteServiceImpl struct {
	notes       repository.NoteRepository
	grants      repository.GrantRepository
	folders     repository.FolderRepository
	enrichments repository.EnrichmentRepository
	cache       cache.Cache
	index       search.Index
	render      *render.Renderer
	limiter     limiter.Limiter
	enricher    enrich.Scheduler
	tracker     activity.Tracker
	log         *zap.Logger

	cfg    Config
	flight singleflight.Group
	now    func() time.Time
}

var _ NoteService = (*NoteServiceImpl)(nil)

// NewNoteService constructs the service. Zero config values take defaults.
func NewNoteService(d Deps, cfg Config) *NoteServiceImpl {
	def := DefaultConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = def.SideEffectTimeout
	}
	if cfg.SharedReadTimeout <= 0 {
		cfg.SharedReadTimeout = def.SharedReadTimeout
	}
	s := &NoteServiceImpl{
		notes:       d.Notes,
		grants:      d.Grants,
		folders:     d.Folders,
		enrichments: d.Enrichments,
		cache:       d.Cache,
		index:       d.Index,
		render:      d.Renderer,
		limiter:     d.Limiter,
		enricher:    d.Enricher,
		tracker:     d.Tracker,
		log:         d.Log,
		cfg:         cfg,
		now:         time.Now,
	}
	if s.render == nil {
		s.render = render.New()
	}
	if s.limiter == nil {
		s.limiter = limiter.Nop{}
	}
	if s.enricher == nil {
		s.enricher = enrich.Nop{}
	}
	if s.tracker == nil {
		s.tracker = activity.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// sideCtx bounds a post-commit side effect. It survives caller cancellation:
// the write is already durable.
func (s *NoteServiceImpl) sideCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SideEffectTimeout)
}

// indexNote pushes the note into the search index. Failures are logged.
func (s *NoteServiceImpl) indexNote(ctx context.Context, n *model.Note, folderName string) {
	ctx, cancel := s.sideCtx(ctx)
	defer cancel()
	if err := s.index.Index(ctx, search.NewDocument(n, folderName)); err != nil {
		s.log.Warn("index note failed", zap.String("noteId", n.ID.String()), zap.Error(err))
	}
}

// unindexNote drops the note from the search index. Failures are logged.
func (s *NoteServiceImpl) unindexNote(ctx context.Context, noteID uuid.UUID) {
	ctx, cancel := s.sideCtx(ctx)
	defer cancel()
	if err := s.index.Delete(ctx, noteID); err != nil {
		s.log.Warn("unindex note failed", zap.String("noteId", noteID.String()), zap.Error(err))
	}
}

// invalidate drops the single-note key (when noteID is set) and every list page of the owner.
func (s *NoteServiceImpl) invalidate(ctx context.Context, ownerID, noteID uuid.UUID) {
	ctx, cancel := s.sideCtx(ctx)
	defer cancel()
	if noteID != uuid.Nil {
		if err := s.cache.Delete(ctx, cache.NoteKey(noteID)); err != nil {
			s.log.Warn("cache delete failed", zap.String("noteId", noteID.String()), zap.Error(err))
		}
	}
	if _, err := cache.DeletePrefix(ctx, s.cache, cache.ListPrefix(ownerID)); err != nil {
		s.log.Warn("cache list invalidation failed", zap.String("ownerId", ownerID.String()), zap.Error(err))
	}
}
