package integrity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
	"github.com/kailas-cloud/tagdex/internal/repository/memory"
	"github.com/kailas-cloud/tagdex/internal/usecase/tagging"
)

var now = time.UnixMilli(1_000_000)

func newTestService(st *memory.Store) *Service {
	return New(st.Articles(), st.Tags(), st.Refs()).
		WithClock(func() time.Time { return now })
}

func putArticle(st *memory.Store, id int64, tags ...string) {
	st.PutArticle(domart.Reconstruct(id, "h", "t", "", nil, domart.Topic{Name: "x"}, tags))
}

func articleTags(t *testing.T, st *memory.Store, id int64) []string {
	t.Helper()
	a, err := st.Articles().Get(context.Background(), id)
	require.NoError(t, err)
	return a.Tags()
}

func TestSweep_CleanStoreIsUntouched(t *testing.T) {
	st := memory.New()
	st.PutTag(domtag.Reconstruct("t1", "go", "", now.Add(-time.Hour)))
	putArticle(st, 1, "t1")
	require.NoError(t, st.Refs().Add(context.Background(), "t1", 1))

	r, err := newTestService(st).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{ArticlesScanned: 1}, r)
	assert.Equal(t, []string{"t1"}, articleTags(t, st, 1))
	assert.Equal(t, []int64{1}, st.RefMembers("t1"))
}

func TestSweep_RemovesDanglingTagIDs(t *testing.T) {
	st := memory.New()
	st.PutTag(domtag.Reconstruct("t1", "go", "", now.Add(-time.Hour)))
	putArticle(st, 1, "t1", "gone")
	putArticle(st, 2, "gone", "also-gone")
	putArticle(st, 3)

	r, err := newTestService(st).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, r.ArticlesScanned)
	assert.Equal(t, 2, r.ArticlesRepaired)
	assert.Equal(t, 3, r.DanglingRemoved)
	assert.Equal(t, []string{"t1"}, articleTags(t, st, 1))
	assert.Empty(t, articleTags(t, st, 2))
}

func TestSweep_DropsOrphanReverseIndexes(t *testing.T) {
	st := memory.New()
	st.PutTag(domtag.Reconstruct("t1", "go", "", now.Add(-time.Hour)))
	ctx := context.Background()
	require.NoError(t, st.Refs().Add(ctx, "t1", 1))
	require.NoError(t, st.Refs().Add(ctx, "deleted", 1, 2))

	r, err := newTestService(st).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.RefSetsDropped)
	assert.Empty(t, st.RefMembers("deleted"))
	assert.Equal(t, []int64{1}, st.RefMembers("t1"))
}

func TestSweep_MergesDuplicateNames(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	st.PutTag(domtag.Reconstruct("t-b", "go", "", now.Add(-2*time.Hour)))
	st.PutTag(domtag.Reconstruct("t-a", "go", "", now.Add(-time.Hour)))
	putArticle(st, 1, "t-a")
	putArticle(st, 2, "t-a", "t-b")
	// article 3 carries the loser but is missing from its reverse index
	putArticle(st, 3, "t-a")
	require.NoError(t, st.Refs().Add(ctx, "t-a", 1, 2))
	require.NoError(t, st.Refs().Add(ctx, "t-b", 2))

	r, err := newTestService(st).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.DuplicatesMerged)
	assert.Zero(t, r.Failures)

	assert.Equal(t, 1, st.TagCount())
	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, []string{"t-b"}, articleTags(t, st, id), "article %d", id)
	}
	assert.Equal(t, []int64{1, 2, 3}, st.RefMembers("t-b"))
	assert.Empty(t, st.RefMembers("t-a"))
}

func TestSweep_LeavesFreshDuplicatesAlone(t *testing.T) {
	st := memory.New()
	st.PutTag(domtag.Reconstruct("t1", "go", "", now.Add(-2*time.Hour)))
	st.PutTag(domtag.Reconstruct("t2", "go", "", now.Add(-time.Second)))
	putArticle(st, 1, "t2")

	r, err := newTestService(st).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, r.DuplicatesMerged)
	assert.Equal(t, 2, st.TagCount())
	assert.Equal(t, []string{"t2"}, articleTags(t, st, 1))
}

func TestSweep_FailedMergeKeepsLoser(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	st.PutTag(domtag.Reconstruct("t1", "go", "", now.Add(-2*time.Hour)))
	st.PutTag(domtag.Reconstruct("t2", "go", "", now.Add(-time.Hour)))
	putArticle(st, 1, "t2")
	putArticle(st, 2, "t2")
	st.FailArticle(2, errors.New("write failed"))

	svc := newTestService(st)
	r, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, r.DuplicatesMerged)
	assert.Equal(t, 1, r.Failures)
	assert.Equal(t, 2, st.TagCount())
	assert.Equal(t, []string{"t1"}, articleTags(t, st, 1))

	st.FailArticle(2, nil)
	r, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.DuplicatesMerged)
	assert.Equal(t, 1, st.TagCount())
	assert.Equal(t, []string{"t1"}, articleTags(t, st, 2))
}

// interleavedArticles runs hook once, right before the first tag removal reaches the
// store, so a concurrent writer lands between the sweep's read and its write.
type interleavedArticles struct {
	*memory.Articles
	once sync.Once
	hook func()
}

func (a *interleavedArticles) RemoveTags(ctx context.Context, id int64, tagIDs ...string) (int, error) {
	a.once.Do(a.hook)
	return a.Articles.RemoveTags(ctx, id, tagIDs...)
}

func attachConcurrently(t *testing.T, st *memory.Store, name string, id int64) func() {
	return func() {
		_, err := tagging.New(st.Articles(), st.Tags(), st.Refs()).
			AddTagToArticles(context.Background(), name, []int64{id})
		require.NoError(t, err)
	}
}

func TestSweep_RepairKeepsTagsAttachedMeanwhile(t *testing.T) {
	st := memory.New()
	st.PutTag(domtag.Reconstruct("t1", "go", "", now.Add(-time.Hour)))
	st.PutTag(domtag.Reconstruct("t-fresh", "fresh", "", now.Add(-time.Hour)))
	putArticle(st, 1, "t1", "gone")

	articles := &interleavedArticles{Articles: st.Articles(), hook: attachConcurrently(t, st, "fresh", 1)}
	svc := New(articles, st.Tags(), st.Refs()).WithClock(func() time.Time { return now })

	r, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.DanglingRemoved)
	assert.Equal(t, []string{"t1", "t-fresh"}, articleTags(t, st, 1))
	assert.Equal(t, []int64{1}, st.RefMembers("t-fresh"))
}

func TestSweep_MergeKeepsTagsAttachedMeanwhile(t *testing.T) {
	st := memory.New()
	st.PutTag(domtag.Reconstruct("t-b", "go", "", now.Add(-2*time.Hour)))
	st.PutTag(domtag.Reconstruct("t-a", "go", "", now.Add(-time.Hour)))
	st.PutTag(domtag.Reconstruct("t-fresh", "fresh", "", now.Add(-time.Hour)))
	putArticle(st, 1, "t-a")

	articles := &interleavedArticles{Articles: st.Articles(), hook: attachConcurrently(t, st, "fresh", 1)}
	svc := New(articles, st.Tags(), st.Refs()).WithClock(func() time.Time { return now })

	r, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.DuplicatesMerged)
	assert.ElementsMatch(t, []string{"t-b", "t-fresh"}, articleTags(t, st, 1))
}

func TestSweep_CountsFailedRepairs(t *testing.T) {
	st := memory.New()
	putArticle(st, 1, "gone")
	putArticle(st, 2, "gone")
	st.FailArticle(1, errors.New("write failed"))

	r, err := newTestService(st).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Failures)
	assert.Equal(t, 1, r.ArticlesRepaired)
	assert.Equal(t, []string{"gone"}, articleTags(t, st, 1))
}

func TestSweep_StoreDown(t *testing.T) {
	st := memory.New()
	st.SetDown(domain.ErrStoreUnavailable)

	_, err := newTestService(st).Sweep(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

type observerStub struct {
	calls    int
	articles int
	err      error
}

func (o *observerStub) ObserveSweep(_ time.Duration, articles, _, _, _ int, err error) {
	o.calls++
	o.articles = articles
	o.err = err
}

func TestSweep_ReportsToObserver(t *testing.T) {
	st := memory.New()
	putArticle(st, 1, "gone")
	obs := &observerStub{}

	_, err := newTestService(st).WithObserver(obs).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, obs.calls)
	assert.Equal(t, 1, obs.articles)

	st.SetDown(domain.ErrStoreUnavailable)
	_, _ = newTestService(st).WithObserver(obs).Sweep(context.Background())
	assert.Equal(t, 2, obs.calls)
	assert.ErrorIs(t, obs.err, domain.ErrStoreUnavailable)
}
