package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagement-dashboard/models"
	"engagement-dashboard/scraper"
)

// fakeSource serves canned posts per handle and records calls.
type fakeSource struct {
	mu     sync.Mutex
	posts  map[string][]*models.RawPost
	errs   map[string]error
	delay  map[string]time.Duration
	calls  []string
	limits []int
}

func (f *fakeSource) FetchPosts(ctx context.Context, handle string, limit int) ([]*models.RawPost, error) {
	f.mu.Lock()
	f.calls = append(f.calls, handle)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()

	if d := f.delay[handle]; d > 0 {
		time.Sleep(d)
	}
	return f.posts[handle], f.errs[handle]
}

func aliceAndBob() *fakeSource {
	return &fakeSource{posts: map[string][]*models.RawPost{
		"alice": rawPosts("alice", 100, 10, 20, 0),
		"bob":   rawPosts("bob", 0, 4, 8),
	}}
}

func handlesOf(table *models.CombinedTable) []string {
	out := make([]string, 0, table.Len())
	for _, r := range table.Rows {
		out = append(out, r.Handle)
	}
	return out
}

func TestAggregateAliceThenBob(t *testing.T) {
	corpus := NewCorpus(aliceAndBob(), newTestLogger())

	res, err := corpus.Aggregate(context.Background(), []string{"alice", "bob"}, 100)
	require.NoError(t, err)
	require.Equal(t, 5, res.Table.Len())

	want := []string{"alice", "alice", "alice", "bob", "bob"}
	if diff := cmp.Diff(want, handlesOf(res.Table)); diff != "" {
		t.Errorf("row identities mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 10.0, res.Table.Rows[0].LikeRatio)
	assert.Equal(t, 20.0, res.Table.Rows[1].LikeRatio)
	assert.Equal(t, 0.0, res.Table.Rows[2].LikeRatio)
	assert.True(t, math.IsNaN(res.Table.Rows[3].LikeRatio))
	assert.True(t, math.IsNaN(res.Table.Rows[4].LikeRatio))

	require.Len(t, res.Statuses, 2)
	assert.Equal(t, models.LoadLoaded, res.Statuses[0].State)
	assert.Equal(t, 3, res.Statuses[0].Posts)
	assert.Equal(t, models.LoadLoaded, res.Statuses[1].State)
	assert.Equal(t, 2, res.Statuses[1].Posts)
}

func TestAggregateOrderFollowsSelection(t *testing.T) {
	corpus := NewCorpus(aliceAndBob(), newTestLogger())

	res, err := corpus.Aggregate(context.Background(), []string{"bob", "alice"}, 100)
	require.NoError(t, err)

	want := []string{"bob", "bob", "alice", "alice", "alice"}
	assert.Equal(t, want, handlesOf(res.Table))
}

func TestAggregateEmptySelection(t *testing.T) {
	src := aliceAndBob()
	corpus := NewCorpus(src, newTestLogger())

	res, err := corpus.Aggregate(context.Background(), nil, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Table.Len())
	assert.NotNil(t, res.Table.Rows)
	assert.Equal(t, models.Schema(), res.Table.Columns())
	assert.Empty(t, res.Statuses)
	assert.Empty(t, src.calls)
}

func TestAggregateSkipsFailingIdentity(t *testing.T) {
	src := aliceAndBob()
	src.errs = map[string]error{
		"ghost": scraper.NewFetchError("ghost", scraper.KindNotFound, nil),
	}
	corpus := NewCorpus(src, newTestLogger())

	res, err := corpus.Aggregate(context.Background(), []string{"alice", "ghost", "bob"}, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Table.Len())

	require.Len(t, res.Statuses, 3)
	assert.Equal(t, models.LoadFailed, res.Statuses[1].State)
	var fe *scraper.FetchError
	require.ErrorAs(t, res.Statuses[1].Err, &fe)
	assert.Equal(t, scraper.KindNotFound, fe.Kind)

	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "ghost", failed[0].Handle)
}

func TestAggregateAllFailed(t *testing.T) {
	src := &fakeSource{errs: map[string]error{
		"a": errors.New("connection refused"),
		"b": errors.New("connection refused"),
	}}
	corpus := NewCorpus(src, newTestLogger())

	res, err := corpus.Aggregate(context.Background(), []string{"a", "b"}, 10)
	require.ErrorIs(t, err, ErrNoIdentityLoaded)
	require.NotNil(t, res)
	assert.Len(t, res.Statuses, 2)
	assert.Equal(t, 0, res.Table.Len())
}

func TestAggregatePartialAndEmpty(t *testing.T) {
	src := &fakeSource{
		posts: map[string][]*models.RawPost{
			"alice": rawPosts("alice", 100, 1, 2),
		},
		errs: map[string]error{
			"alice": scraper.NewFetchError("alice", scraper.KindRateLimited, nil),
		},
	}
	corpus := NewCorpus(src, newTestLogger())

	res, err := corpus.Aggregate(context.Background(), []string{"alice", "quiet"}, 10)
	require.NoError(t, err)
	assert.Equal(t, models.LoadPartial, res.Statuses[0].State)
	assert.Equal(t, 2, res.Statuses[0].Posts)
	assert.Equal(t, models.LoadEmpty, res.Statuses[1].State)
	assert.Equal(t, 2, res.Table.Len())
}

func TestAggregateNormalisesAndDeduplicatesSelection(t *testing.T) {
	src := aliceAndBob()
	corpus := NewCorpus(src, newTestLogger())

	res, err := corpus.Aggregate(context.Background(),
		[]string{"https://twitter.com/alice", "@alice", "", "bob"}, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, src.calls)
	assert.Len(t, res.Statuses, 2)
}

func TestAggregateAppliesSharedLimit(t *testing.T) {
	src := &fakeSource{posts: map[string][]*models.RawPost{
		"alice": rawPosts("alice", 100, 1, 2, 3, 4),
		"bob":   rawPosts("bob", 100, 1, 2, 3, 4),
	}}
	corpus := NewCorpus(src, newTestLogger())

	res, err := corpus.Aggregate(context.Background(), []string{"alice", "bob"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Table.Len())
	assert.Equal(t, []int{2, 2}, src.limits)
}

func TestAggregateConcurrentKeepsSelectionOrder(t *testing.T) {
	src := aliceAndBob()
	src.delay = map[string]time.Duration{"alice": 30 * time.Millisecond}
	corpus := NewCorpus(src, newTestLogger(), WithConcurrency(4, 0))

	res, err := corpus.Aggregate(context.Background(), []string{"alice", "bob"}, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "alice", "alice", "bob", "bob"}, handlesOf(res.Table))
}

func TestAggregateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	corpus := NewCorpus(aliceAndBob(), newTestLogger())
	_, err := corpus.Aggregate(ctx, []string{"alice"}, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, strings.HasPrefix(err.Error(), "corpus:"))
}
