package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlert/internal/domain/models"
	"FinAlert/pkg/metrics"
)

func candidate(symbol, alertType string, level models.AlertLevel) models.GeneratedAlert {
	return models.GeneratedAlert{Symbol: symbol, AlertType: alertType, Level: level, Title: symbol + " " + alertType}
}

func TestDeduplicatorCooldown(t *testing.T) {
	store := newFakeAlertStore()
	d := NewAlertDeduplicator(store, metrics.Nop{}, nil, 4*time.Hour)

	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fire := func(at time.Time) models.DedupResult {
		d.now = func() time.Time { return at }
		return d.Process(context.Background(), []models.GeneratedAlert{candidate("BTC", models.AlertPriceChange, models.LevelHigh)})
	}

	res := fire(t0)
	require.Len(t, res.Created, 1)
	assert.True(t, res.Created[0].IsActive)
	assert.False(t, res.Created[0].Dismissed)
	assert.NotEmpty(t, res.Created[0].ID)
	assert.Equal(t, t0, res.Created[0].CreatedAt)

	res = fire(t0.Add(time.Hour))
	assert.Empty(t, res.Created)
	assert.Equal(t, 1, res.SkippedCooldown)
	assert.Equal(t, 1, store.count())

	res = fire(t0.Add(5 * time.Hour))
	assert.Len(t, res.Created, 1)
	assert.Equal(t, 2, store.count())
}

func TestDeduplicatorCollapsesSameCycle(t *testing.T) {
	store := newFakeAlertStore()
	d := NewAlertDeduplicator(store, metrics.Nop{}, nil, 0)

	first := candidate("ETH", models.AlertVolumeSpike, models.LevelHigh)
	second := candidate("ETH", models.AlertVolumeSpike, models.LevelMedium)
	other := candidate("ETH", models.AlertPriceChange, models.LevelLow)

	res := d.Process(context.Background(), []models.GeneratedAlert{first, second, other})
	require.Len(t, res.Created, 2)
	assert.Equal(t, models.LevelHigh, res.Created[0].Level)
	assert.Equal(t, models.AlertPriceChange, res.Created[1].AlertType)
	assert.Equal(t, 1, res.SkippedInCycle)
}

func TestDeduplicatorIsolatesStoreFailures(t *testing.T) {
	store := newFakeAlertStore()
	store.findErr["SOL"] = errors.New("timeout")
	store.createEr["ADA"] = errors.New("constraint")
	n := &recordingNotifier{fail: true}
	d := NewAlertDeduplicator(store, metrics.Nop{}, nil, time.Hour, n)

	res := d.Process(context.Background(), []models.GeneratedAlert{
		candidate("SOL", models.AlertPriceChange, models.LevelHigh),
		candidate("ADA", models.AlertPriceChange, models.LevelHigh),
		candidate("BTC", models.AlertPriceChange, models.LevelHigh),
	})

	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "BTC", res.Created[0].Symbol)
	require.Len(t, n.got, 1)
	assert.Equal(t, res.Created[0].ID, n.got[0].ID)
}
