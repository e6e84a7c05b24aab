package repository

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"FinAlert/internal/domain/models"
	drepo "FinAlert/internal/domain/repository"
	"FinAlert/pkg/cache"
	"FinAlert/pkg/logger"
)

// CachedMarketStore caches volume history. Latest observations and the indicator are
// always read through so a cycle never evaluates stale prices.
type CachedMarketStore struct {
	next  drepo.MarketStore
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
	group singleflight.Group
}

func NewCachedMarketStore(next drepo.MarketStore, c cache.Service, ttl time.Duration, l *logger.Logger) *CachedMarketStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if l == nil {
		l = logger.Nop()
	}
	return &CachedMarketStore{next: next, cache: c, ttl: ttl, log: l}
}

func (s *CachedMarketStore) LatestObservations(ctx context.Context) ([]models.MarketObservation, error) {
	return s.next.LatestObservations(ctx)
}

func (s *CachedMarketStore) LatestIndicator(ctx context.Context) (*models.MarketIndicator, error) {
	return s.next.LatestIndicator(ctx)
}

// VolumeHistory loads history from the hour boundary before since and trims it, so
// calls within the same hour share one cache entry.
func (s *CachedMarketStore) VolumeHistory(ctx context.Context, symbol string, since time.Time) ([]models.VolumeSample, error) {
	from := since.UTC().Truncate(time.Hour)
	key := cache.GenerateKey("volume", symbol, from.Unix())

	var samples []models.VolumeSample
	err := s.cache.Get(ctx, key, &samples)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("volume cache read failed", logger.String("key", key), logger.Error(err))
		}
		v, err, _ := s.group.Do(key, func() (interface{}, error) {
			fresh, err := s.next.VolumeHistory(ctx, symbol, from)
			if err != nil {
				return nil, err
			}
			if err := s.cache.Set(ctx, key, fresh, s.ttl); err != nil {
				s.log.Warn("volume cache write failed", logger.String("key", key), logger.Error(err))
			}
			return fresh, nil
		})
		if err != nil {
			return nil, err
		}
		samples = v.([]models.VolumeSample)
	}

	out := make([]models.VolumeSample, 0, len(samples))
	for _, v := range samples {
		if !v.ObservedAt.Before(since) {
			out = append(out, v)
		}
	}
	return out, nil
}
