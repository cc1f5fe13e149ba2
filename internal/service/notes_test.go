package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/notekeeper/internal/cache"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/search"
)

func TestCreateGetUpdate_VersionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{
		Title: "Plan", Content: "# Q3 goals\n\nShip the new search and fix the cache.", Privacy: model.PrivacyPrivate,
	})
	require.NoError(t, err)
	require.Equal(t, 1, n.VersionCount)
	require.Equal(t, model.PrivacyPrivate, n.Privacy)

	got, err := f.svc.Get(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 10, got.WordCount)
	require.Equal(t, 1, got.ReadingTime)
	require.Contains(t, got.ContentHTML, "<h1")
	require.Equal(t, int64(0), got.ViewCount, "owner reads are not counted")

	same := got.Content
	up, err := f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Content: &same, Title: ptr("Plan B")})
	require.NoError(t, err)
	require.Equal(t, 1, up.VersionCount)
	require.Equal(t, "Plan B", up.Title)

	changed := "# Q3 goals\n\nShip search.\n"
	up, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Content: &changed})
	require.NoError(t, err)
	require.Equal(t, 2, up.VersionCount)

	vs, err := f.svc.ListVersions(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	require.Equal(t, 2, vs[0].Number)
	require.Contains(t, vs[0].ChangesSummary, "content")
	require.Equal(t, initialSummary, vs[1].ChangesSummary)

	require.Equal(t, 2, f.enricher.count(), "create and content change")
	require.Equal(t, 1, f.tracker.count(model.ActionCreated))
	require.Equal(t, 2, f.tracker.count(model.ActionUpdated))
}

func TestCreate_TagsDeduplicatedCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	owner := newID()

	n, err := f.svc.Create(context.Background(), owner, model.CreateNoteInput{Title: "t", Tags: []string{"Work", "work"}})
	require.NoError(t, err)
	require.Len(t, n.Tags, 1)
	require.Equal(t, "work", n.Tags[0].Name)
	require.Len(t, f.repo.st.tags, 1)
	require.Len(t, f.repo.st.noteTags[n.ID], 1)
}

func TestUpdate_TagsReplacedWholesale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Tags: []string{"a", "b"}})
	require.NoError(t, err)
	colorA := n.Tags[0].Color

	tags := []string{"B", "c"}
	up, err := f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Tags: &tags})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, up.TagNames())

	back := []string{"a"}
	up, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Tags: &back})
	require.NoError(t, err)
	require.Equal(t, colorA, up.Tags[0].Color, "existing tag keeps its color")
	require.Equal(t, 1, up.VersionCount)
}

func TestVersions_GaplessAcrossMixedUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Content: "v1"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{IsPinned: ptr(i%2 == 0)})
		require.NoError(t, err)
		c := strings.Repeat("x", i+1)
		_, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Content: &c})
		require.NoError(t, err)
	}
	vs, err := f.svc.ListVersions(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Len(t, vs, 4)
	for i, v := range vs {
		require.Equal(t, 4-i, v.Number)
	}
}

func TestUpdate_PinAndArchiveTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t"})
	require.NoError(t, err)
	up, err := f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{IsPinned: ptr(true), IsArchived: ptr(true)})
	require.NoError(t, err)
	require.True(t, up.IsPinned)
	require.NotNil(t, up.PinnedAt)
	require.NotNil(t, up.ArchivedAt)

	up, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{IsPinned: ptr(false)})
	require.NoError(t, err)
	require.Nil(t, up.PinnedAt)
	require.True(t, up.IsArchived)
}

func TestUpdate_PasswordTriState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Password: ptr("one")})
	require.NoError(t, err)
	first := n.PasswordHash
	require.True(t, strings.HasPrefix(first, "argon2id$"))

	up, err := f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Title: ptr("x")})
	require.NoError(t, err)
	require.Equal(t, first, up.PasswordHash, "absent leaves the hash")

	up, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Password: model.Set("two")})
	require.NoError(t, err)
	require.NotEqual(t, first, up.PasswordHash)
	require.NotEmpty(t, up.PasswordHash)

	up, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Password: model.Null[string]()})
	require.NoError(t, err)
	require.Empty(t, up.PasswordHash, "explicit null clears")
}

func TestUpdate_IfVersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Content: "a"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Content: ptr("b"), IfVersion: ptr(1)})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Content: ptr("c"), IfVersion: ptr(1)})
	require.ErrorIs(t, err, errs.ErrVersionConflict)

	got, err := f.svc.Get(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "b", got.Content)
}

func TestUpdate_ConcurrentLastWriterWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Content: "base"})
	require.NoError(t, err)

	// Without IfVersion the row lock serializes writers: each content change appends its own version.
	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for _, c := range []string{"from A", "from B"} {
		wg.Add(1)
		go func(c string) {
			defer wg.Done()
			_, err := f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Content: &c})
			errCh <- err
		}(c)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	vs, err := f.svc.ListVersions(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Len(t, vs, 3)
	require.Equal(t, []int{3, 2, 1}, []int{vs[0].Number, vs[1].Number, vs[2].Number})

	got, err := f.svc.Get(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Equal(t, vs[0].Content, got.Content, "last committed write is stored")
}

func TestCreate_ForeignFolderIsInvalidAndNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := newID(), newID()

	folder, err := f.svc.CreateFolder(ctx, bob, "Bob's", nil)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, alice, model.CreateNoteInput{Title: "t", FolderID: &folder.ID})
	require.ErrorIs(t, err, errs.ErrInvalid)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Empty(t, f.repo.st.notes, "transaction rolled back")

	own, err := f.svc.CreateFolder(ctx, alice, "Inbox", nil)
	require.NoError(t, err)
	n, err := f.svc.Create(ctx, alice, model.CreateNoteInput{Title: "t", FolderID: &own.ID})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, alice, n.ID, model.UpdateNoteInput{FolderID: model.Set(folder.ID)})
	require.ErrorIs(t, err, errs.ErrInvalid)

	up, err := f.svc.Update(ctx, alice, n.ID, model.UpdateNoteInput{FolderID: model.Null[uuid.UUID]()})
	require.NoError(t, err)
	require.Nil(t, up.FolderID)
}

func TestCreate_RollsBackOnVersionFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.failInsertVersion = true

	_, err := f.svc.Create(context.Background(), newID(), model.CreateNoteInput{Title: "t", Tags: []string{"x"}})
	require.Error(t, err)
	require.Empty(t, f.repo.st.notes)
	require.Empty(t, f.repo.st.tags)
	require.Zero(t, f.enricher.count())
}

func TestCreate_InvalidPrivacy(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), newID(), model.CreateNoteInput{Privacy: "SECRET"})
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestGet_PasswordGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, other := newID(), newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Privacy: model.PrivacyPublic, Password: ptr("s3cret")})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, other, n.ID, nil)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.Get(ctx, other, n.ID, ptr("nope"))
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	got, err := f.svc.Get(ctx, other, n.ID, ptr("s3cret"))
	require.NoError(t, err)
	require.Equal(t, int64(1), got.ViewCount)

	_, err = f.svc.Get(ctx, owner, n.ID, nil)
	require.NoError(t, err, "owner bypasses the gate")
	require.Equal(t, int64(1), f.repo.st.notes[n.ID].ViewCount, "owner view not counted")
	require.Equal(t, 2, f.tracker.count(model.ActionViewed), "only successful reads are tracked")
}

func TestGet_PasswordAttemptsLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, other := newID(), newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Privacy: model.PrivacyPublic, Password: ptr("right")})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.Get(ctx, other, n.ID, ptr("wrong"))
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	}
	_, err = f.svc.Get(ctx, other, n.ID, ptr("right"))
	require.ErrorIs(t, err, errs.ErrRateLimited)

	_, err = f.svc.Get(ctx, newID(), n.ID, ptr("right"))
	require.NoError(t, err, "limits are per caller")
}

func TestGet_PrivateHiddenFromOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, other := newID(), newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t"})
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, owner, n.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, other, n.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound, "cached owner snapshot is not served to others")
}

func TestGet_PrivacyChangeInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, other := newID(), newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Privacy: model.PrivacyPublic})
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, other, n.ID, nil)
	require.NoError(t, err)
	require.True(t, f.mr.Exists(cache.NoteKey(n.ID)))

	priv := model.PrivacyPrivate
	_, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Privacy: &priv})
	require.NoError(t, err)
	require.False(t, f.mr.Exists(cache.NoteKey(n.ID)))

	_, err = f.svc.Get(ctx, other, n.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestGet_CachedPublicSnapshotServedUntilExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, other := newID(), newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Privacy: model.PrivacyPublic})
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, other, n.ID, nil)
	require.NoError(t, err)

	// A privacy change that skipped invalidation stays visible until the TTL.
	f.repo.mu.Lock()
	row := f.repo.st.notes[n.ID]
	row.Privacy = model.PrivacyPrivate
	f.repo.st.notes[n.ID] = row
	f.repo.mu.Unlock()

	_, err = f.svc.Get(ctx, other, n.ID, nil)
	require.NoError(t, err)

	f.mr.FastForward(6 * time.Minute)
	_, err = f.svc.Get(ctx, other, n.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestGet_SideEffectFailuresDoNotFailWrites(t *testing.T) {
	f := newFixture(t, withIndex(failingIndex{}))
	ctx := context.Background()
	owner := newID()
	f.mr.Close()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Content: "a"})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Content: ptr("b")})
	require.NoError(t, err)
	got, err := f.svc.Get(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "b", got.Content)
	require.NoError(t, f.svc.Delete(ctx, owner, n.ID))
}

func TestLifecycle_StateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "Alpha", Content: "alpha"})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.PermanentDelete(ctx, owner, n.ID), errs.ErrNotFound, "live note cannot be purged")
	_, err = f.svc.Restore(ctx, owner, n.ID)
	require.ErrorIs(t, err, errs.ErrNotFound, "live note cannot be restored")

	require.NoError(t, f.svc.Delete(ctx, owner, n.ID))
	require.ErrorIs(t, f.svc.Delete(ctx, owner, n.ID), errs.ErrNotFound)
	_, err = f.svc.Get(ctx, owner, n.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
	res, err := f.svc.Search(ctx, model.SearchOptions{CallerID: owner, Query: "alpha"})
	require.NoError(t, err)
	require.Empty(t, res.Hits)

	restored, err := f.svc.Restore(ctx, owner, n.ID)
	require.NoError(t, err)
	require.False(t, restored.IsDeleted)
	res, err = f.svc.Search(ctx, model.SearchOptions{CallerID: owner, Query: "alpha"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)

	require.NoError(t, f.svc.Delete(ctx, owner, n.ID))
	require.NoError(t, f.svc.PermanentDelete(ctx, owner, n.ID))
	_, err = f.svc.Restore(ctx, owner, n.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Empty(t, f.repo.st.versions[n.ID])
}

func TestGet_SharedReadSurvivesFirstCallerCancel(t *testing.T) {
	f := newFixture(t)
	owner, other := newID(), newID()

	n, err := f.svc.Create(context.Background(), owner, model.CreateNoteInput{Title: "p", Privacy: model.PrivacyPublic})
	require.NoError(t, err)
	f.mr.FlushAll()

	f.repo.readGate = make(chan struct{})
	f.repo.readStarted = make(chan struct{}, 1)

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := f.svc.Get(ctx1, other, n.ID, nil)
		first <- err
	}()
	<-f.repo.readStarted

	second := make(chan error, 1)
	go func() {
		_, err := f.svc.Get(context.Background(), other, n.ID, nil)
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel1()
	time.Sleep(20 * time.Millisecond)
	close(f.repo.readGate)

	require.NoError(t, <-second, "a waiting caller must not inherit another caller's cancellation")
	<-first
}

func TestOwnerOnly_ForbiddenVersusNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, other := newID(), newID()

	pub, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "p", Privacy: model.PrivacyPublic})
	require.NoError(t, err)
	priv, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "q"})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, other, pub.ID), errs.ErrForbidden)
	require.ErrorIs(t, f.svc.Delete(ctx, other, priv.ID), errs.ErrNotFound)
	_, err = f.svc.RestoreVersion(ctx, other, pub.ID, 1)
	require.ErrorIs(t, err, errs.ErrForbidden)
	require.ErrorIs(t, f.svc.PermanentDelete(ctx, other, newID()), errs.ErrNotFound)

	// a trashed note looks the same as a missing one to outsiders
	require.NoError(t, f.svc.Delete(ctx, owner, pub.ID))
	_, err = f.svc.Get(ctx, other, pub.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = f.svc.Restore(ctx, other, pub.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NotErrorIs(t, err, errs.ErrForbidden)
	require.ErrorIs(t, f.svc.PermanentDelete(ctx, other, pub.ID), errs.ErrNotFound)
	_, err = f.svc.RestoreVersion(ctx, other, pub.ID, 1)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.Restore(ctx, owner, pub.ID)
	require.NoError(t, err)
}

func TestRestoreVersion_AlwaysAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Content: "first"})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, owner, n.ID, model.UpdateNoteInput{Content: ptr("second")})
	require.NoError(t, err)

	up, err := f.svc.RestoreVersion(ctx, owner, n.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 3, up.VersionCount)
	require.Equal(t, "first", up.Content)

	up, err = f.svc.RestoreVersion(ctx, owner, n.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 4, up.VersionCount, "same content still appends")

	vs, err := f.svc.ListVersions(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "Restored from version 1", vs[0].ChangesSummary)

	_, err = f.svc.RestoreVersion(ctx, owner, n.ID, 99)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Equal(t, 2, f.tracker.count(model.ActionVersionRestored))
}

func TestDuplicate_AlwaysPrivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := newID(), newID()

	folder, err := f.svc.CreateFolder(ctx, alice, "Work", nil)
	require.NoError(t, err)
	src, err := f.svc.Create(ctx, alice, model.CreateNoteInput{
		Title: "Plan", Content: "body", Privacy: model.PrivacyPublic, FolderID: &folder.ID,
		Tags: []string{"work", "q3"}, Icon: "📝", Color: "#fff",
	})
	require.NoError(t, err)

	dup, err := f.svc.Duplicate(ctx, bob, src.ID, nil)
	require.NoError(t, err)
	require.Equal(t, bob, dup.OwnerID)
	require.Equal(t, model.PrivacyPrivate, dup.Privacy)
	require.Equal(t, "Plan (Copy)", dup.Title)
	require.Equal(t, "body", dup.Content)
	require.Equal(t, "📝", dup.Icon)
	require.Nil(t, dup.FolderID, "foreign folder is not carried over")
	require.ElementsMatch(t, []string{"work", "q3"}, dup.TagNames())
	require.Equal(t, bob, dup.Tags[0].OwnerID)
	require.Equal(t, 1, dup.VersionCount)

	own, err := f.svc.Duplicate(ctx, alice, src.ID, nil)
	require.NoError(t, err)
	require.Equal(t, folder.ID, *own.FolderID)
	require.Equal(t, model.PrivacyPrivate, own.Privacy)
}

func TestSearch_ResolvesInIndexOrderAndDropsStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	misc, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "Misc", Content: "the budget is tight"})
	require.NoError(t, err)
	budget, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "Budget", Content: "numbers", Tags: []string{"money"}})
	require.NoError(t, err)
	gone, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "Budget old", Content: "budget"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, newID(), model.CreateNoteInput{Title: "Budget", Content: "budget"})
	require.NoError(t, err)

	// Removed from the store behind the index's back.
	f.repo.mu.Lock()
	delete(f.repo.st.notes, gone.ID)
	f.repo.mu.Unlock()

	res, err := f.svc.Search(ctx, model.SearchOptions{CallerID: owner, Query: "budget"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	require.Equal(t, budget.ID, res.Hits[0].Note.ID)
	require.Equal(t, misc.ID, res.Hits[1].Note.ID)
	require.Equal(t, 3, res.Total)
	require.NotEmpty(t, res.Tags)

	_, err = f.svc.Search(ctx, model.SearchOptions{})
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestList_CachedAndInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	_, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "a"})
	require.NoError(t, err)
	page, err := f.svc.List(ctx, owner, model.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.True(t, f.mr.Exists(cache.ListKey(owner, model.ListOptions{})))

	pinned, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "b"})
	require.NoError(t, err)
	require.False(t, f.mr.Exists(cache.ListKey(owner, model.ListOptions{})))
	_, err = f.svc.Update(ctx, owner, pinned.ID, model.UpdateNoteInput{IsPinned: ptr(true)})
	require.NoError(t, err)

	page, err = f.svc.List(ctx, owner, model.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, pinned.ID, page.Notes[0].ID, "pinned first")
}

func TestSharing_LinksAndCollaborators(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, friend, stranger := newID(), newID(), newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t", Privacy: model.PrivacyShared})
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, friend, n.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.svc.AddCollaborator(ctx, owner, n.ID, friend, model.PermissionRead))
	_, err = f.svc.Get(ctx, friend, n.ID, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveCollaborator(ctx, owner, n.ID, friend))
	_, err = f.svc.Get(ctx, friend, n.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)

	link, err := f.svc.CreateShareLink(ctx, owner, n.ID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, link.Token)
	require.NotNil(t, link.ExpiresAt)

	got, err := f.svc.GetShared(ctx, stranger, link.Token, nil)
	require.NoError(t, err)
	require.Equal(t, n.ID, got.ID)

	require.NoError(t, f.svc.RevokeShareLink(ctx, owner, n.ID, link.ID))
	_, err = f.svc.GetShared(ctx, stranger, link.Token, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, f.svc.RevokeShareLink(ctx, owner, n.ID, link.ID), errs.ErrNotFound)

	require.ErrorIs(t, f.svc.AddCollaborator(ctx, owner, n.ID, owner, model.PermissionRead), errs.ErrInvalid)
	require.ErrorIs(t, f.svc.AddCollaborator(ctx, stranger, n.ID, friend, ""), errs.ErrNotFound)
}

func TestReindexOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	folder, err := f.svc.CreateFolder(ctx, owner, "Inbox", nil)
	require.NoError(t, err)
	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "Quarterly plan", FolderID: &folder.ID})
	require.NoError(t, err)

	fresh, err := search.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = fresh.Close() })
	f.svc.index = fresh

	// left behind by a failed unindex of a note that is gone from the store
	ghost := search.Document{ID: newID(), OwnerID: owner, Title: "Ghost plan", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, fresh.Index(ctx, ghost))

	count, err := f.svc.ReindexOwner(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	indexed, err := fresh.OwnedIDs(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{n.ID}, indexed)

	res, err := f.svc.Search(ctx, model.SearchOptions{CallerID: owner, Query: "plan"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
}

func TestGetEnrichment_RequiresReadAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	n, err := f.svc.Create(ctx, owner, model.CreateNoteInput{Title: "t"})
	require.NoError(t, err)
	_, err = f.svc.GetEnrichment(ctx, owner, n.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.repo.SaveEnrichment(ctx, model.Enrichment{NoteID: n.ID, Summary: "s"}))
	e, err := f.svc.GetEnrichment(ctx, owner, n.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "s", e.Summary)

	_, err = f.svc.GetEnrichment(ctx, newID(), n.ID, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFolders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newID()

	_, err := f.svc.CreateFolder(ctx, owner, "  ", nil)
	require.ErrorIs(t, err, errs.ErrInvalid)

	parent, err := f.svc.CreateFolder(ctx, owner, "Work", nil)
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, owner, "Q3", &parent.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, newID(), "x", &parent.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	fs, err := f.svc.ListFolders(ctx, owner)
	require.NoError(t, err)
	require.Len(t, fs, 2)
}
