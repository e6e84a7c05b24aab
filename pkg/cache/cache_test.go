package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Symbol string  `json:"symbol"`
	Volume float64 `json:"volume"`
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", []sample{{Symbol: "BTC", Volume: 10}}, time.Minute))

	var got []sample
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, "BTC", got[0].Symbol)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Second); return now }

	require.NoError(t, mc.Set(ctx, "a", "1", time.Hour))
	require.NoError(t, mc.Set(ctx, "b", "2", time.Hour))
	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	require.NoError(t, mc.Set(ctx, "c", "3", time.Hour))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &s))
	assert.Equal(t, "1", s)
}

type failingCache struct{ Service }

func (failingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("l2 down")
}

func TestLayeredCacheFillsNearLayer(t *testing.T) {
	l1 := NewMemoryCache(WithMemoryCleanup(0))
	l2 := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(l1, l2)
	defer lc.Close()
	ctx := context.Background()

	require.NoError(t, l2.Set(ctx, "vol:BTC", sample{Symbol: "BTC", Volume: 42}, time.Hour))

	var got sample
	require.NoError(t, lc.Get(ctx, "vol:BTC", &got))
	assert.Equal(t, 42.0, got.Volume)
	assert.Equal(t, 1, l1.Len())

	require.NoError(t, lc.Delete(ctx, "vol:BTC"))
	assert.ErrorIs(t, lc.Get(ctx, "vol:BTC", &got), ErrCacheMiss)
}

func TestLayeredCacheWriteFailsWhenSharedLayerFails(t *testing.T) {
	l1 := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(l1, failingCache{})

	require.Error(t, lc.Set(context.Background(), "k", "v", time.Minute))
	assert.Equal(t, 0, l1.Len())
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "volume:BTC:168h0m0s", GenerateKey("volume", "BTC", 168*time.Hour))
}
