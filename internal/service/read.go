package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/cache"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/policy"
)

// Get returns a note the caller may read. Non-owner reads bump the view counter.
func (s *NoteServiceImpl) Get(ctx context.Context, callerID, noteID uuid.UUID, password *string) (*model.Note, error) {
	n, err := s.read(ctx, callerID, noteID, password)
	if err != nil {
		return nil, err
	}
	s.viewed(ctx, callerID, n, nil)
	return n, nil
}

// GetShared resolves a share token and applies the same password gate as Get.
func (s *NoteServiceImpl) GetShared(ctx context.Context, callerID uuid.UUID, token string, password *string) (*model.Note, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("empty share token: %w", errs.ErrInvalid)
	}
	n, err := s.notes.GetByShareToken(ctx, token, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.passwordGate(ctx, callerID, n, password); err != nil {
		return nil, err
	}
	s.viewed(ctx, callerID, n, map[string]string{"via": "share_link"})
	return n, nil
}

// read is Get without the view side effects.
func (s *NoteServiceImpl) read(ctx context.Context, callerID, noteID uuid.UUID, password *string) (*model.Note, error) {
	if callerID == uuid.Nil || noteID == uuid.Nil {
		return nil, fmt.Errorf("empty caller or note id: %w", errs.ErrInvalid)
	}
	n, err := s.load(ctx, callerID, noteID)
	if err != nil {
		return nil, err
	}
	if err := s.passwordGate(ctx, callerID, n, password); err != nil {
		return nil, err
	}
	return n, nil
}

// load serves from cache when the snapshot itself allows the caller, otherwise
// from the record store. Concurrent misses for one (caller, note) share a query.
func (s *NoteServiceImpl) load(ctx context.Context, callerID, noteID uuid.UUID) (*model.Note, error) {
	key := cache.NoteKey(noteID)

	cctx, cancel := context.WithTimeout(ctx, s.cfg.SideEffectTimeout)
	cached, err := cache.GetJSON[model.Note](cctx, s.cache, key)
	cancel()
	switch {
	case err == nil && policy.AllowCached(callerID, cached):
		return cached, nil
	case err != nil && !errors.Is(err, cache.ErrMiss):
		s.log.Warn("cache read failed", zap.String("noteId", noteID.String()), zap.Error(err))
	}

	// the shared read outlives any single caller's cancellation
	v, err, _ := s.flight.Do(callerID.String()+":"+noteID.String(), func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SharedReadTimeout)
		defer cancel()
		n, err := s.notes.GetVisible(qctx, callerID, noteID, s.now())
		if err != nil {
			return nil, err
		}
		sctx, cancel := s.sideCtx(ctx)
		defer cancel()
		if err := cache.SetJSON(sctx, s.cache, key, n, s.cfg.CacheTTL); err != nil {
			s.log.Warn("cache write failed", zap.String("noteId", noteID.String()), zap.Error(err))
		}
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*model.Note)
	return &cp, nil
}

// passwordGate enforces the note password for non-owners behind the attempt limiter.
func (s *NoteServiceImpl) passwordGate(ctx context.Context, callerID uuid.UUID, n *model.Note, password *string) error {
	if !policy.NeedsPassword(callerID, n) {
		return nil
	}
	ok, retry, err := s.limiter.Allow(ctx, callerID, n.ID)
	if err != nil {
		s.log.Warn("limiter check failed", zap.String("noteId", n.ID.String()), zap.Error(err))
	} else if !ok {
		return fmt.Errorf("too many password attempts, retry in %s: %w", retry.Round(time.Second), errs.ErrRateLimited)
	}

	err = policy.CheckPassword(callerID, n, password)
	switch {
	case err == nil:
		if lerr := s.limiter.Success(ctx, callerID, n.ID); lerr != nil {
			s.log.Warn("limiter reset failed", zap.String("noteId", n.ID.String()), zap.Error(lerr))
		}
	case errors.Is(err, errs.ErrUnauthorized) && password != nil && *password != "":
		if _, _, lerr := s.limiter.Failure(ctx, callerID, n.ID); lerr != nil {
			s.log.Warn("limiter record failed", zap.String("noteId", n.ID.String()), zap.Error(lerr))
		}
	}
	return err
}

// viewed counts a non-owner view and records the activity. Both are best effort.
func (s *NoteServiceImpl) viewed(ctx context.Context, callerID uuid.UUID, n *model.Note, meta map[string]string) {
	if n.OwnerID != callerID {
		if err := s.notes.IncrementViews(ctx, n.ID); err != nil {
			s.log.Warn("view count failed", zap.String("noteId", n.ID.String()), zap.Error(err))
		} else {
			n.ViewCount++
		}
	}
	s.tracker.Track(callerID, n.ID, model.ActionViewed, meta)
}

// List returns a page of the owner's live notes, cached per page.
func (s *NoteServiceImpl) List(ctx context.Context, ownerID uuid.UUID, opts model.ListOptions) (model.NotePage, error) {
	if ownerID == uuid.Nil {
		return model.NotePage{}, fmt.Errorf("empty owner: %w", errs.ErrInvalid)
	}
	opts.Limit = model.ClampLimit(opts.Limit)
	opts.Offset = max(opts.Offset, 0)
	key := cache.ListKey(ownerID, opts)

	cctx, cancel := context.WithTimeout(ctx, s.cfg.SideEffectTimeout)
	cached, err := cache.GetJSON[model.NotePage](cctx, s.cache, key)
	cancel()
	if err == nil {
		return *cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("cache read failed", zap.String("ownerId", ownerID.String()), zap.Error(err))
	}

	page, err := s.notes.ListOwned(ctx, ownerID, opts)
	if err != nil {
		return model.NotePage{}, err
	}
	sctx, scancel := s.sideCtx(ctx)
	defer scancel()
	if err := cache.SetJSON(sctx, s.cache, key, page, s.cfg.CacheTTL); err != nil {
		s.log.Warn("cache write failed", zap.String("ownerId", ownerID.String()), zap.Error(err))
	}
	return page, nil
}

// Search queries the index, then re-reads the hits from the record store in
// index order. Hits that no longer resolve are dropped.
func (s *NoteServiceImpl) Search(ctx context.Context, opts model.SearchOptions) (model.SearchResult, error) {
	if opts.CallerID == uuid.Nil {
		return model.SearchResult{}, fmt.Errorf("empty caller: %w", errs.ErrInvalid)
	}
	opts.Limit = model.ClampLimit(opts.Limit)
	opts.Offset = max(opts.Offset, 0)

	ictx, cancel := context.WithTimeout(ctx, s.cfg.SideEffectTimeout)
	res, err := s.index.Search(ictx, opts)
	cancel()
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("search index: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	notes, err := s.notes.GetManyOwned(ctx, opts.CallerID, ids)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("resolve hits: %w", err)
	}
	byID := make(map[uuid.UUID]model.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	out := model.SearchResult{
		Hits:    make([]model.SearchHit, 0, len(res.Hits)),
		Total:   res.Total,
		Tags:    res.Tags,
		Folders: res.Folders,
	}
	for _, h := range res.Hits {
		n, ok := byID[h.ID]
		if !ok {
			s.log.Debug("stale search hit dropped", zap.String("noteId", h.ID.String()))
			continue
		}
		out.Hits = append(out.Hits, model.SearchHit{Note: n, Score: h.Score, Highlights: h.Highlights})
	}
	return out, nil
}

// ListVersions requires a successful read, then returns the full history.
func (s *NoteServiceImpl) ListVersions(ctx context.Context, callerID, noteID uuid.UUID, password *string) ([]model.NoteVersion, error) {
	if _, err := s.Get(ctx, callerID, noteID, password); err != nil {
		return nil, err
	}
	return s.notes.ListVersions(ctx, noteID)
}

// GetEnrichment returns the last analysis of a note the caller may read.
func (s *NoteServiceImpl) GetEnrichment(ctx context.Context, callerID, noteID uuid.UUID, password *string) (*model.Enrichment, error) {
	if _, err := s.read(ctx, callerID, noteID, password); err != nil {
		return nil, err
	}
	return s.enrichments.GetEnrichment(ctx, noteID)
}
