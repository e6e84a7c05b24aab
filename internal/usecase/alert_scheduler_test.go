package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
	"FinAlert/internal/services/alerting"
	"FinAlert/pkg/metrics"
)

func newTestAlertScheduler(market *fakeMarketStore, store *fakeAlertStore) *AlertScheduler {
	d := NewAlertDeduplicator(store, metrics.Nop{}, nil, 4*time.Hour)
	return NewAlertScheduler(market, alerting.NewEngine(alerting.DefaultRules()), d, metrics.Nop{}, nil, AlertConfig{Interval: time.Hour})
}

func history(n int, at time.Time, volume float64) []models.VolumeSample {
	out := make([]models.VolumeSample, n)
	for i := range out {
		out[i] = models.VolumeSample{Volume: volume, ObservedAt: at.Add(-time.Duration(i+1) * time.Hour)}
	}
	return out
}

func TestPerformEvaluationCreatesAlerts(t *testing.T) {
	at := time.Now().UTC().Truncate(time.Second)
	market := &fakeMarketStore{
		obs: []models.MarketObservation{
			{Symbol: "SOL", Price: 150, Change24hPercent: 9, Volume: 500, ObservedAt: at},
			{Symbol: "ADA", Price: 0.5, Change24hPercent: 1, Volume: 10, ObservedAt: at},
		},
		indicator: &models.MarketIndicator{FearGreedIndex: 85, ObservedAt: at},
		volumes:   map[string][]models.VolumeSample{"SOL": history(6, at, 100)},
	}
	store := newFakeAlertStore()
	s := newTestAlertScheduler(market, store)

	require.NoError(t, s.PerformEvaluation(context.Background()))

	alerts := store.alerts
	require.Len(t, alerts, 3)
	assert.Equal(t, models.LevelHigh, alerts[0].Level)
	assert.Equal(t, models.LevelHigh, alerts[1].Level)
	assert.Equal(t, models.AlertMarketSentiment, alerts[2].AlertType)

	st := s.Status()
	assert.Equal(t, uint64(1), st.TotalRuns)
	assert.Equal(t, uint64(3), st.AlertsCreated)

	require.NoError(t, s.PerformEvaluation(context.Background()))
	st = s.Status()
	assert.Equal(t, uint64(3), st.AlertsCreated)
	assert.Equal(t, uint64(3), st.AlertsSkipped)
}

func TestPerformEvaluationFailsWithoutObservations(t *testing.T) {
	s := newTestAlertScheduler(&fakeMarketStore{obsErr: errors.New("clickhouse down")}, newFakeAlertStore())

	err := s.PerformEvaluation(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsPersistence(err))
	assert.Equal(t, uint64(1), s.Status().FailedRuns)
}

func TestPerformEvaluationToleratesPartialMarketData(t *testing.T) {
	at := time.Now().UTC()
	market := &fakeMarketStore{
		obs:     []models.MarketObservation{{Symbol: "SOL", Price: 150, Change24hPercent: 4, Volume: 1000, ObservedAt: at}},
		indErr:  errors.New("no indicator table"),
		volumes: map[string][]models.VolumeSample{"SOL": history(6, at, 100)},
		volErr:  map[string]error{"SOL": errors.New("timeout")},
	}
	store := newFakeAlertStore()
	s := newTestAlertScheduler(market, store)

	require.NoError(t, s.PerformEvaluation(context.Background()))
	require.Equal(t, 1, store.count())
	assert.Equal(t, models.AlertPriceChange, store.alerts[0].AlertType)
	assert.Equal(t, uint64(0), s.Status().FailedRuns)
}
