package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
	"FinAlert/pkg/metrics"
)

func newTestCollection(store *fakeSourceStore, f *fakeFetcher) *CollectionScheduler {
	return NewCollectionScheduler(store, f, metrics.Nop{}, nil, CollectionConfig{
		Interval:      time.Hour,
		MaxConcurrent: 3,
		BatchDelay:    time.Millisecond,
	})
}

func items(sourceID string, ids ...string) []models.FeedItem {
	out := make([]models.FeedItem, len(ids))
	for i, id := range ids {
		out[i] = models.FeedItem{SourceID: sourceID, ExternalID: id, Title: id}
	}
	return out
}

func TestPerformCollectionBoundsConcurrency(t *testing.T) {
	var sources []models.Source
	for i := 0; i < 10; i++ {
		sources = append(sources, models.Source{ID: fmt.Sprintf("s%d", i)})
	}
	store := newFakeSourceStore(sources...)
	f := newFakeFetcher()
	f.delay = 20 * time.Millisecond

	s := newTestCollection(store, f)
	require.NoError(t, s.PerformCollection(context.Background()))

	assert.LessOrEqual(t, f.maxSeen, MaxConcurrentCollections)
	assert.Len(t, f.order, 10)
	st := s.Stats()
	assert.Equal(t, uint64(1), st.TotalRuns)
	assert.Equal(t, uint64(10), st.SuccessCount)
}

func TestMaxConcurrentIsCapped(t *testing.T) {
	s := NewCollectionScheduler(newFakeSourceStore(), newFakeFetcher(), metrics.Nop{}, nil, CollectionConfig{MaxConcurrent: 50})
	assert.Equal(t, MaxConcurrentCollections, s.cfg.MaxConcurrent)
}

func TestPerformCollectionSkipsWhenInProgress(t *testing.T) {
	store := newFakeSourceStore(models.Source{ID: "slow"})
	f := newFakeFetcher()
	f.block = make(chan struct{})
	f.entered = make(chan string, 1)
	s := newTestCollection(store, f)

	done := make(chan error, 1)
	go func() { done <- s.PerformCollection(context.Background()) }()
	<-f.entered

	assert.True(t, s.InProgress())
	require.NoError(t, s.PerformCollection(context.Background()))
	assert.Equal(t, uint64(0), s.Stats().TotalRuns)

	close(f.block)
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), s.Stats().TotalRuns)
	assert.Equal(t, []string{"slow"}, f.order)
}

func TestPerformCollectionPrefersStaleSources(t *testing.T) {
	hourAgo := time.Now().Add(-time.Hour)
	store := newFakeSourceStore(
		models.Source{ID: "recent", LastCollectedAt: &hourAgo},
		models.Source{ID: "never"},
	)
	f := newFakeFetcher()
	s := NewCollectionScheduler(store, f, metrics.Nop{}, nil, CollectionConfig{MaxConcurrent: 1})

	require.NoError(t, s.PerformCollection(context.Background()))
	assert.Equal(t, []string{"never", "recent"}, f.order)
}

func TestPerformCollectionIsolatesFailures(t *testing.T) {
	store := newFakeSourceStore(
		models.Source{ID: "broken"},
		models.Source{ID: "panicky"},
		models.Source{ID: "healthy"},
	)
	f := newFakeFetcher()
	f.fetchErr["broken"] = errs.NewFetchError("http://broken", "status", errors.New("502"))
	f.panics["panicky"] = true
	f.items["healthy"] = items("healthy", "a", "b")

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newTestCollection(store, f)
	s.now = func() time.Time { return now }

	require.NoError(t, s.PerformCollection(context.Background()))

	broken := store.get("broken")
	assert.Equal(t, models.SourceError, broken.Status)
	require.NotNil(t, broken.LastError)
	assert.Contains(t, *broken.LastError, "502")
	assert.Nil(t, broken.LastCollectedAt)

	panicky := store.get("panicky")
	assert.Equal(t, models.SourceError, panicky.Status)
	assert.Nil(t, panicky.LastCollectedAt)

	healthy := store.get("healthy")
	assert.Equal(t, models.SourceActive, healthy.Status)
	assert.Nil(t, healthy.LastError)
	require.NotNil(t, healthy.LastCollectedAt)
	assert.Equal(t, now, *healthy.LastCollectedAt)
	assert.Equal(t, uint64(2), healthy.TotalCollected)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.SuccessCount)
	assert.Equal(t, uint64(2), st.FailureCount)
	assert.Equal(t, uint64(2), st.ItemsCollected)
	assert.Equal(t, uint64(0), st.FailedRuns)
}

func TestPersistenceFailureStillAdvancesLastCollected(t *testing.T) {
	msg := "old failure"
	store := newFakeSourceStore(models.Source{ID: "s1", LastError: &msg})
	f := newFakeFetcher()
	f.items["s1"] = items("s1", "a", "b", "c")
	f.saveErr["s1"] = errs.NewPersistenceError("item", "s1", errors.New("deadlock"))

	s := newTestCollection(store, f)
	require.NoError(t, s.PerformCollection(context.Background()))

	src := store.get("s1")
	assert.Equal(t, models.SourceError, src.Status)
	require.NotNil(t, src.LastCollectedAt)
	require.NotNil(t, src.LastError)
	assert.Contains(t, *src.LastError, "deadlock")
	assert.Equal(t, uint64(1), src.TotalCollected)
	assert.Equal(t, uint64(1), s.Stats().FailureCount)
}

func TestRepeatedItemsCountOnce(t *testing.T) {
	store := newFakeSourceStore(models.Source{ID: "s1"})
	f := newFakeFetcher()
	f.items["s1"] = items("s1", "same")
	s := newTestCollection(store, f)

	require.NoError(t, s.PerformCollection(context.Background()))
	require.NoError(t, s.PerformCollection(context.Background()))

	assert.Equal(t, uint64(1), store.get("s1").TotalCollected)
	assert.Equal(t, uint64(2), s.Stats().TotalRuns)
	assert.Equal(t, uint64(1), s.Stats().ItemsCollected)
}

func TestListFailureCountsFailedRun(t *testing.T) {
	store := newFakeSourceStore()
	store.listErr = errors.New("connection refused")
	s := newTestCollection(store, newFakeFetcher())

	err := s.PerformCollection(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsPersistence(err))

	st := s.Stats()
	assert.Equal(t, uint64(1), st.TotalRuns)
	assert.Equal(t, uint64(1), st.FailedRuns)
	assert.False(t, s.InProgress())
}

func TestNoEnabledSourcesIsNoop(t *testing.T) {
	f := newFakeFetcher()
	s := newTestCollection(newFakeSourceStore(), f)

	require.NoError(t, s.PerformCollection(context.Background()))
	assert.Empty(t, f.order)
	assert.Equal(t, uint64(0), s.Stats().FailedRuns)
}

func TestResetStats(t *testing.T) {
	store := newFakeSourceStore(models.Source{ID: "s1"})
	s := newTestCollection(store, newFakeFetcher())
	require.NoError(t, s.PerformCollection(context.Background()))
	require.Equal(t, uint64(1), s.Stats().TotalRuns)

	s.ResetStats()
	assert.Equal(t, models.CollectionStats{}, s.Stats())
}

func TestStartRunsImmediatelyAndStopIsIdempotent(t *testing.T) {
	store := newFakeSourceStore(models.Source{ID: "s1"})
	f := newFakeFetcher()
	f.entered = make(chan string, 4)
	s := newTestCollection(store, f)

	s.Start(context.Background())
	s.Start(context.Background())
	assert.True(t, s.IsRunning())

	select {
	case id := <-f.entered:
		assert.Equal(t, "s1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run on start")
	}
	require.NotNil(t, s.Stats().NextRunAt)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.Stats().NextRunAt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Len(t, f.order, 1)
}

func TestTriggerRunsInBackground(t *testing.T) {
	store := newFakeSourceStore(models.Source{ID: "s1"})
	s := newTestCollection(store, newFakeFetcher())

	s.Trigger()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	assert.Equal(t, uint64(1), s.Stats().TotalRuns)
}

func TestBatchesRunStrictlyInSequence(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	var sources []models.Source
	for i := 0; i < 7; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		sources = append(sources, models.Source{ID: fmt.Sprintf("s%d", i), LastCollectedAt: &at})
	}
	store := newFakeSourceStore(sources...)
	f := newFakeFetcher()
	f.delay = 10 * time.Millisecond

	const batchDelay = 30 * time.Millisecond
	s := NewCollectionScheduler(store, f, metrics.Nop{}, nil, CollectionConfig{
		Interval:      time.Hour,
		MaxConcurrent: 3,
		BatchDelay:    batchDelay,
	})
	require.NoError(t, s.PerformCollection(context.Background()))
	require.Len(t, f.spans, 7)

	batches := [][]string{{"s0", "s1", "s2"}, {"s3", "s4", "s5"}, {"s6"}}
	for k := 0; k+1 < len(batches); k++ {
		var lastEnd time.Time
		for _, id := range batches[k] {
			if end := f.spans[id].end; end.After(lastEnd) {
				lastEnd = end
			}
		}
		for _, id := range batches[k+1] {
			gap := f.spans[id].start.Sub(lastEnd)
			assert.GreaterOrEqual(t, gap, batchDelay, "%s started %v after batch %d settled", id, gap, k)
		}
	}
}

func TestPanickingSourceUpdateIsAppliedOnce(t *testing.T) {
	store := newFakeSourceStore(models.Source{ID: "s1"})
	store.updatePanics = map[string]bool{"s1": true}
	f := newFakeFetcher()
	f.items["s1"] = items("s1", "a", "b")
	s := newTestCollection(store, f)

	require.NoError(t, s.PerformCollection(context.Background()))

	assert.Equal(t, 1, store.patchCount("s1"))
	assert.Equal(t, uint64(2), store.get("s1").TotalCollected)
	st := s.Stats()
	assert.Equal(t, uint64(1), st.FailureCount)
	assert.Zero(t, st.SuccessCount)
}

func TestNextRunCountsFromEndOfFirstCycle(t *testing.T) {
	store := newFakeSourceStore(models.Source{ID: "s1"})
	f := newFakeFetcher()
	f.block = make(chan struct{})
	f.entered = make(chan string, 1)
	s := newTestCollection(store, f)

	s.Start(context.Background())
	defer s.Stop()
	<-f.entered
	time.Sleep(20 * time.Millisecond)
	released := time.Now()
	close(f.block)

	require.Eventually(t, func() bool { return s.Stats().TotalRuns == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		next := s.Stats().NextRunAt
		return next != nil && !next.Before(released.Add(time.Hour))
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStopDuringFirstCycleLeavesNoNextRun(t *testing.T) {
	store := newFakeSourceStore(models.Source{ID: "s1"})
	f := newFakeFetcher()
	f.block = make(chan struct{})
	f.entered = make(chan string, 1)
	s := newTestCollection(store, f)

	s.Start(context.Background())
	<-f.entered
	s.Stop()
	close(f.block)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, uint64(1), s.Stats().TotalRuns)
	assert.Nil(t, s.Stats().NextRunAt)
	assert.False(t, s.IsRunning())
}
