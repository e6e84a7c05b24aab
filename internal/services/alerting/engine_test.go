package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlert/internal/domain/models"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func obs(symbol string, change float64) models.MarketObservation {
	return models.MarketObservation{Symbol: symbol, Price: 1, Change24hPercent: change, Volume: 100, ObservedAt: t0}
}

func TestPriceChangeBoundaries(t *testing.T) {
	tests := []struct {
		change float64
		want   models.AlertLevel
	}{
		{8.0, models.LevelHigh},
		{-8.0, models.LevelHigh},
		{7.999, models.LevelMedium},
		{5.0, models.LevelMedium},
		{4.999, models.LevelLow},
		{3.0, models.LevelLow},
		{2.999, ""},
		{0, ""},
	}

	e := NewEngine(DefaultRules())
	for _, tt := range tests {
		got := e.Evaluate(Snapshot{Observations: []models.MarketObservation{obs("SOL", tt.change)}, Now: t0})
		if tt.want == "" {
			assert.Empty(t, got, "change %v", tt.change)
			continue
		}
		require.Len(t, got, 1, "change %v", tt.change)
		assert.Equal(t, tt.want, got[0].Level, "change %v", tt.change)
		assert.Equal(t, models.AlertPriceChange, got[0].AlertType)
		assert.Equal(t, "24h", got[0].Timeframe)
		require.NotNil(t, got[0].ChangePercent)
		assert.Equal(t, tt.change, *got[0].ChangePercent)
	}
}

func TestPriceChangeDirection(t *testing.T) {
	e := NewEngine(DefaultRules())
	got := e.Evaluate(Snapshot{Observations: []models.MarketObservation{obs("SOL", -6)}, Now: t0})
	require.Len(t, got, 1)
	assert.Equal(t, "down", got[0].Details["direction"])
}

func TestEvaluateOrdersByLevel(t *testing.T) {
	e := NewEngine(DefaultRules())
	got := e.Evaluate(Snapshot{
		Observations: []models.MarketObservation{obs("AAA", 3.5), obs("BBB", 9), obs("CCC", 6)},
		Now:          t0,
	})

	require.Len(t, got, 3)
	assert.Equal(t, []string{"BBB", "CCC", "AAA"}, []string{got[0].Symbol, got[1].Symbol, got[2].Symbol})
	assert.Equal(t, []models.AlertLevel{models.LevelHigh, models.LevelMedium, models.LevelLow},
		[]models.AlertLevel{got[0].Level, got[1].Level, got[2].Level})
}

func TestEvaluateUsesNewestObservation(t *testing.T) {
	old := obs("SOL", 9)
	old.ObservedAt = t0.Add(-5 * time.Minute)
	cur := obs("SOL", 1)

	got := NewEngine(DefaultRules()).Evaluate(Snapshot{Observations: []models.MarketObservation{cur, old}, Now: t0})
	assert.Empty(t, got)
}

func TestPriceLevelRule(t *testing.T) {
	e := NewEngine(DefaultRules())

	near := models.MarketObservation{Symbol: "BTC", Price: 99000, Change24hPercent: 2.5, ObservedAt: t0}
	got := e.Evaluate(Snapshot{Observations: []models.MarketObservation{near}, Now: t0})
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertPriceLevel, got[0].AlertType)
	assert.Equal(t, models.LevelMedium, got[0].Level)
	assert.Equal(t, 100000.0, got[0].Details["level"])

	flat := near
	flat.Change24hPercent = 2
	assert.Empty(t, e.Evaluate(Snapshot{Observations: []models.MarketObservation{flat}, Now: t0}))

	far := near
	far.Price = 95000
	assert.Empty(t, e.Evaluate(Snapshot{Observations: []models.MarketObservation{far}, Now: t0}))

	notListed := near
	notListed.Symbol = "SOL"
	assert.Empty(t, e.Evaluate(Snapshot{Observations: []models.MarketObservation{notListed}, Now: t0}))
}

func samples(n int, volume float64) []models.VolumeSample {
	out := make([]models.VolumeSample, n)
	for i := range out {
		out[i] = models.VolumeSample{Volume: volume, ObservedAt: t0.Add(-time.Duration(i+1) * time.Hour)}
	}
	return out
}

func TestVolumeSpike(t *testing.T) {
	e := NewEngine(DefaultRules())
	o := obs("SOL", 0)
	o.Volume = 400

	got := e.Evaluate(Snapshot{
		Observations:  []models.MarketObservation{o},
		VolumeHistory: map[string][]models.VolumeSample{"SOL": samples(5, 100)},
		Now:           t0,
	})
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertVolumeSpike, got[0].AlertType)
	assert.Equal(t, models.LevelHigh, got[0].Level)

	o.Volume = 250
	got = e.Evaluate(Snapshot{
		Observations:  []models.MarketObservation{o},
		VolumeHistory: map[string][]models.VolumeSample{"SOL": samples(5, 100)},
		Now:           t0,
	})
	require.Len(t, got, 1)
	assert.Equal(t, models.LevelMedium, got[0].Level)

	o.Volume = 249
	got = e.Evaluate(Snapshot{
		Observations:  []models.MarketObservation{o},
		VolumeHistory: map[string][]models.VolumeSample{"SOL": samples(5, 100)},
		Now:           t0,
	})
	assert.Empty(t, got)
}

func TestVolumeSpikeNeedsFiveSamples(t *testing.T) {
	o := obs("SOL", 0)
	o.Volume = 1e9

	got := NewEngine(DefaultRules()).Evaluate(Snapshot{
		Observations:  []models.MarketObservation{o},
		VolumeHistory: map[string][]models.VolumeSample{"SOL": samples(4, 1)},
		Now:           t0,
	})
	assert.Empty(t, got)
}

func TestVolumeSpikeIgnoresCurrentAndStaleSamples(t *testing.T) {
	o := obs("SOL", 0)
	o.Volume = 1000

	hist := samples(4, 100)
	hist = append(hist,
		models.VolumeSample{Volume: 100, ObservedAt: t0},
		models.VolumeSample{Volume: 100, ObservedAt: t0.Add(-8 * 24 * time.Hour)},
	)

	got := NewEngine(DefaultRules()).Evaluate(Snapshot{
		Observations:  []models.MarketObservation{o},
		VolumeHistory: map[string][]models.VolumeSample{"SOL": hist},
		Now:           t0,
	})
	assert.Empty(t, got)
}

func TestMarketSentiment(t *testing.T) {
	e := NewEngine(DefaultRules())
	tests := []struct {
		index float64
		want  string
	}{
		{80, "extreme_greed"},
		{95, "extreme_greed"},
		{20, "extreme_fear"},
		{5, "extreme_fear"},
		{50, ""},
		{79.9, ""},
	}
	for _, tt := range tests {
		got := e.Evaluate(Snapshot{Indicator: &models.MarketIndicator{FearGreedIndex: tt.index}, Now: t0})
		if tt.want == "" {
			assert.Empty(t, got, "index %v", tt.index)
			continue
		}
		require.Len(t, got, 1, "index %v", tt.index)
		assert.Equal(t, models.MarketSymbol, got[0].Symbol)
		assert.Equal(t, models.LevelMedium, got[0].Level)
		assert.Equal(t, tt.want, got[0].Details["sentiment"])
	}

	assert.Empty(t, e.Evaluate(Snapshot{Now: t0}))
}

func TestOneAlertPerSymbolAndType(t *testing.T) {
	got := NewEngine(DefaultRules()).Evaluate(Snapshot{
		Observations: []models.MarketObservation{obs("SOL", 9), obs("SOL", 9)},
		Now:          t0,
	})
	assert.Len(t, got, 1)
}
