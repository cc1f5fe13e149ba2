package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/notekeeper/internal/cache"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/policy"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/search"
)

/************ in-memory record store ************/

type memState struct {
	notes    map[uuid.UUID]model.Note
	versions map[uuid.UUID][]model.NoteVersion
	tags     map[uuid.UUID]model.Tag
	noteTags map[uuid.UUID][]uuid.UUID
	folders  map[uuid.UUID]model.Folder
	collabs  map[[2]uuid.UUID]model.Collaboration
	links    []model.ShareLink
	enrich   map[uuid.UUID]model.Enrichment
}

func newMemState() *memState {
	return &memState{
		notes:    map[uuid.UUID]model.Note{},
		versions: map[uuid.UUID][]model.NoteVersion{},
		tags:     map[uuid.UUID]model.Tag{},
		noteTags: map[uuid.UUID][]uuid.UUID{},
		folders:  map[uuid.UUID]model.Folder{},
		collabs:  map[[2]uuid.UUID]model.Collaboration{},
		enrich:   map[uuid.UUID]model.Enrichment{},
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	for k, v := range st.notes {
		c.notes[k] = v
	}
	for k, v := range st.versions {
		c.versions[k] = append([]model.NoteVersion(nil), v...)
	}
	for k, v := range st.tags {
		c.tags[k] = v
	}
	for k, v := range st.noteTags {
		c.noteTags[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range st.folders {
		c.folders[k] = v
	}
	for k, v := range st.collabs {
		c.collabs[k] = v
	}
	c.links = append([]model.ShareLink(nil), st.links...)
	for k, v := range st.enrich {
		c.enrich[k] = v
	}
	return c
}

func (st *memState) hydrate(n model.Note) *model.Note {
	n.Tags = []model.Tag{}
	for _, id := range st.noteTags[n.ID] {
		n.Tags = append(n.Tags, st.tags[id])
	}
	n.VersionCount = len(st.versions[n.ID])
	return &n
}

func (st *memState) grants(caller, noteID uuid.UUID) policy.Grants {
	var g policy.Grants
	if c, ok := st.collabs[[2]uuid.UUID{noteID, caller}]; ok {
		g.Collaboration = &c
	}
	for _, l := range st.links {
		if l.NoteID == noteID {
			g.ShareLinks = append(g.ShareLinks, l)
		}
	}
	return g
}

type memRepo struct {
	mu sync.Mutex
	st *memState

	failInsertVersion bool
	// readGate, when set, holds GetVisible until closed or the read's ctx ends.
	readGate    chan struct{}
	readStarted chan struct{}
}

var (
	_ repository.NoteRepository       = (*memRepo)(nil)
	_ repository.GrantRepository      = (*memRepo)(nil)
	_ repository.FolderRepository     = (*memRepo)(nil)
	_ repository.EnrichmentRepository = (*memRepo)(nil)
)

func newMemRepo() *memRepo { return &memRepo{st: newMemState()} }

func (r *memRepo) InTx(ctx context.Context, fn func(tx repository.NoteTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work := r.st.clone()
	if err := fn(&memTx{r: r, st: work}); err != nil {
		return err
	}
	r.st = work
	return nil
}

func (r *memRepo) GetVisible(ctx context.Context, caller, id uuid.UUID, now time.Time) (*model.Note, error) {
	if r.readGate != nil {
		select {
		case r.readStarted <- struct{}{}:
		default:
		}
		select {
		case <-r.readGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.st.notes[id]
	if !ok || !policy.CanRead(caller, &n, r.st.grants(caller, id), now) {
		return nil, errs.ErrNotFound
	}
	return r.st.hydrate(n), nil
}

func (r *memRepo) GetByShareToken(_ context.Context, token string, now time.Time) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.st.links {
		if l.Token == token && l.Usable(now) {
			if n, ok := r.st.notes[l.NoteID]; ok && !n.IsDeleted {
				return r.st.hydrate(n), nil
			}
		}
	}
	return nil, errs.ErrNotFound
}

func (r *memRepo) GetAny(_ context.Context, id uuid.UUID) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.st.notes[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.st.hydrate(n), nil
}

func (r *memRepo) GetManyOwned(_ context.Context, owner uuid.UUID, ids []uuid.UUID) ([]model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Note{}
	for _, id := range ids {
		if n, ok := r.st.notes[id]; ok && n.OwnerID == owner && !n.IsDeleted {
			out = append(out, *r.st.hydrate(n))
		}
	}
	return out, nil
}

func (r *memRepo) ListOwned(_ context.Context, owner uuid.UUID, opts model.ListOptions) (model.NotePage, error) {
	all, _ := r.AllOwned(context.Background(), owner)
	var sel []model.Note
	for _, n := range all {
		if n.IsArchived != opts.Archived {
			continue
		}
		if opts.FolderID != nil && (n.FolderID == nil || *n.FolderID != *opts.FolderID) {
			continue
		}
		sel = append(sel, n)
	}
	sort.SliceStable(sel, func(i, j int) bool {
		if sel[i].IsPinned != sel[j].IsPinned {
			return sel[i].IsPinned
		}
		return sel[i].UpdatedAt.After(sel[j].UpdatedAt)
	})
	page := model.NotePage{Notes: []model.Note{}, Total: len(sel)}
	lim := model.ClampLimit(opts.Limit)
	for i := opts.Offset; i < len(sel) && i < opts.Offset+lim; i++ {
		page.Notes = append(page.Notes, sel[i])
	}
	return page, nil
}

func (r *memRepo) AllOwned(_ context.Context, owner uuid.UUID) ([]model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Note{}
	for _, n := range r.st.notes {
		if n.OwnerID == owner && !n.IsDeleted {
			out = append(out, *r.st.hydrate(n))
		}
	}
	return out, nil
}

func (r *memRepo) ListVersions(_ context.Context, id uuid.UUID) ([]model.NoteVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vs := append([]model.NoteVersion(nil), r.st.versions[id]...)
	sort.Slice(vs, func(i, j int) bool { return vs[i].Number > vs[j].Number })
	return vs, nil
}

func (r *memRepo) GetVersion(_ context.Context, id uuid.UUID, number int) (*model.NoteVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.st.versions[id] {
		if v.Number == number {
			return &v, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *memRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.st.notes[id]
	n.ViewCount++
	r.st.notes[id] = n
	return nil
}

func (r *memRepo) setDeleted(owner, id uuid.UUID, want, deleted bool, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.st.notes[id]
	if !ok || n.OwnerID != owner || n.IsDeleted != want {
		return errs.ErrNotFound
	}
	n.IsDeleted, n.DeletedAt = deleted, at
	r.st.notes[id] = n
	return nil
}

func (r *memRepo) SoftDelete(_ context.Context, owner, id uuid.UUID, at time.Time) error {
	return r.setDeleted(owner, id, false, true, &at)
}

func (r *memRepo) Restore(_ context.Context, owner, id uuid.UUID, _ time.Time) error {
	return r.setDeleted(owner, id, true, false, nil)
}

func (r *memRepo) Purge(_ context.Context, owner, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.st.notes[id]
	if !ok || n.OwnerID != owner || !n.IsDeleted {
		return errs.ErrNotFound
	}
	delete(r.st.notes, id)
	delete(r.st.versions, id)
	delete(r.st.noteTags, id)
	return nil
}

// grants

func (r *memRepo) Grants(_ context.Context, caller, noteID uuid.UUID) (*model.Collaboration, []model.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.st.grants(caller, noteID)
	return g.Collaboration, g.ShareLinks, nil
}

func (r *memRepo) CreateShareLink(_ context.Context, l *model.ShareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.st.links {
		if x.Token == l.Token {
			return errs.ErrAlreadyExists
		}
	}
	r.st.links = append(r.st.links, *l)
	return nil
}

func (r *memRepo) DeactivateShareLink(_ context.Context, noteID, linkID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.st.links {
		if l.ID == linkID && l.NoteID == noteID && l.IsActive {
			r.st.links[i].IsActive = false
			return nil
		}
	}
	return errs.ErrNotFound
}

func (r *memRepo) UpsertCollaboration(_ context.Context, c *model.Collaboration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.collabs[[2]uuid.UUID{c.NoteID, c.UserID}] = *c
	return nil
}

func (r *memRepo) DeactivateCollaboration(_ context.Context, noteID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := [2]uuid.UUID{noteID, userID}
	c, ok := r.st.collabs[k]
	if !ok || !c.IsActive {
		return errs.ErrNotFound
	}
	c.IsActive = false
	r.st.collabs[k] = c
	return nil
}

// folders

func (r *memRepo) CreateFolder(_ context.Context, f *model.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ParentID != nil {
		if p, ok := r.st.folders[*f.ParentID]; !ok || p.OwnerID != f.OwnerID {
			return errs.ErrNotFound
		}
	}
	r.st.folders[f.ID] = *f
	return nil
}

func (r *memRepo) ListFolders(_ context.Context, owner uuid.UUID) ([]model.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Folder{}
	for _, f := range r.st.folders {
		if f.OwnerID == owner {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// enrichment

func (r *memRepo) SaveEnrichment(_ context.Context, e model.Enrichment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.enrich[e.NoteID] = e
	return nil
}

func (r *memRepo) GetEnrichment(_ context.Context, id uuid.UUID) (*model.Enrichment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.st.enrich[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &e, nil
}

type memTx struct {
	r  *memRepo
	st *memState
}

func (t *memTx) GetFolder(_ context.Context, owner, id uuid.UUID) (*model.Folder, error) {
	f, ok := t.st.folders[id]
	if !ok || f.OwnerID != owner {
		return nil, errs.ErrNotFound
	}
	return &f, nil
}

func strip(n *model.Note) model.Note {
	c := *n
	c.Tags = nil
	c.VersionCount = 0
	return c
}

func (t *memTx) InsertNote(_ context.Context, n *model.Note) error {
	if _, dup := t.st.notes[n.ID]; dup {
		return errs.ErrAlreadyExists
	}
	t.st.notes[n.ID] = strip(n)
	return nil
}

func (t *memTx) LockNote(_ context.Context, owner, id uuid.UUID) (*model.Note, error) {
	n, ok := t.st.notes[id]
	if !ok || n.OwnerID != owner || n.IsDeleted {
		return nil, errs.ErrNotFound
	}
	return t.st.hydrate(n), nil
}

func (t *memTx) UpdateNote(_ context.Context, n *model.Note) error {
	t.st.notes[n.ID] = strip(n)
	return nil
}

func (t *memTx) MaxVersion(_ context.Context, id uuid.UUID) (int, error) {
	m := 0
	for _, v := range t.st.versions[id] {
		m = max(m, v.Number)
	}
	return m, nil
}

func (t *memTx) InsertVersion(_ context.Context, v *model.NoteVersion) error {
	if t.r.failInsertVersion {
		return errors.New("insert version: boom")
	}
	for _, x := range t.st.versions[v.NoteID] {
		if x.Number == v.Number {
			return errs.ErrVersionConflict
		}
	}
	t.st.versions[v.NoteID] = append(t.st.versions[v.NoteID], *v)
	return nil
}

func (t *memTx) ReplaceTags(_ context.Context, owner, noteID uuid.UUID, tags []model.Tag) ([]model.Tag, error) {
	t.st.noteTags[noteID] = nil
	out := make([]model.Tag, 0, len(tags))
	for _, tg := range tags {
		for _, ex := range t.st.tags {
			if ex.OwnerID == owner && ex.Name == tg.Name {
				tg = ex
				break
			}
		}
		t.st.tags[tg.ID] = tg
		t.st.noteTags[noteID] = append(t.st.noteTags[noteID], tg.ID)
		out = append(out, tg)
	}
	return out, nil
}

/************ side-effect fakes ************/

type recTracker struct {
	mu  sync.Mutex
	evs []model.ActivityEvent
}

func (r *recTracker) Track(user, note uuid.UUID, a model.Action, meta map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, model.ActivityEvent{UserID: user, NoteID: note, Action: a, Metadata: meta})
}

func (r *recTracker) count(a model.Action) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.evs {
		if e.Action == a {
			n++
		}
	}
	return n
}

type recEnricher struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recEnricher) Schedule(id uuid.UUID, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recEnricher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// memLimiter blocks after maxFails wrong passwords.
type memLimiter struct {
	mu       sync.Mutex
	fails    map[[2]uuid.UUID]int
	maxFails int
}

func (l *memLimiter) Allow(_ context.Context, u, n uuid.UUID) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fails[[2]uuid.UUID{u, n}] >= l.maxFails {
		return false, time.Minute, nil
	}
	return true, 0, nil
}

func (l *memLimiter) Success(_ context.Context, u, n uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.fails, [2]uuid.UUID{u, n})
	return nil
}

func (l *memLimiter) Failure(_ context.Context, u, n uuid.UUID) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fails[[2]uuid.UUID{u, n}]++
	return l.fails[[2]uuid.UUID{u, n}] >= l.maxFails, time.Minute, nil
}

type failingIndex struct{}

var errIndexDown = errors.New("index down")

func (failingIndex) Index(context.Context, search.Document) error { return errIndexDown }
func (failingIndex) IndexBatch(context.Context, []search.Document) error { return errIndexDown }
func (failingIndex) Delete(context.Context, uuid.UUID) error { return errIndexDown }
func (failingIndex) OwnedIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, errIndexDown
}
func (failingIndex) Search(context.Context, model.SearchOptions) (search.Result, error) {
	return search.Result{}, errIndexDown
}

/************ fixture ************/

type fixture struct {
	svc      *NoteServiceImpl
	repo     *memRepo
	mr       *miniredis.Miniredis
	cache    *cache.Redis
	index    search.Index
	tracker  *recTracker
	enricher *recEnricher
	limiter  *memLimiter
}

type fixtureOpt func(*Deps)

func withIndex(idx search.Index) fixtureOpt { return func(d *Deps) { d.Index = idx } }

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	idx, err := search.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	f := &fixture{
		repo:     newMemRepo(),
		mr:       mr,
		cache:    cache.NewRedis(rdb),
		tracker:  &recTracker{},
		enricher: &recEnricher{},
		limiter:  &memLimiter{fails: map[[2]uuid.UUID]int{}, maxFails: 3},
	}
	d := Deps{
		Notes: f.repo, Grants: f.repo, Folders: f.repo, Enrichments: f.repo,
		Cache: f.cache, Index: idx,
		Limiter: f.limiter, Enricher: f.enricher, Tracker: f.tracker,
		Log: zaptest.NewLogger(t),
	}
	for _, o := range opts {
		o(&d)
	}
	f.index = d.Index
	f.svc = NewNoteService(d, Config{})
	return f
}

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func ptr[T any](v T) *T { return &v }
