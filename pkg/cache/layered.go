package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads through a near L1 (usually memory) to a shared L2 (usually Redis).
// Writes go to L2 first; an L2 failure fails the write.
type LayeredCache struct {
	l1    Service
	l2    Service
	l1TTL time.Duration
}

// LayeredOption configures LayeredCache.
type LayeredOption func(*LayeredCache)

// WithL1TTL caps how long an entry lives in the near layer.
func WithL1TTL(d time.Duration) LayeredOption {
	return func(lc *LayeredCache) { lc.l1TTL = d }
}

func NewLayeredCache(l1, l2 Service, opts ...LayeredOption) *LayeredCache {
	lc := &LayeredCache{l1: l1, l2: l2, l1TTL: 30 * time.Second}
	for _, opt := range opts {
		opt(lc)
	}
	return lc
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.l2.Set(ctx, key, data, expiration); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, data, lc.nearTTL(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	if err := lc.l1.Get(ctx, key, &data); err == nil {
		return decode(data, dest)
	}

	if err := lc.l2.Get(ctx, key, &data); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, data, lc.l1TTL)
	return decode(data, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}

func (lc *LayeredCache) nearTTL(d time.Duration) time.Duration {
	if d <= 0 || d > lc.l1TTL {
		return lc.l1TTL
	}
	return d
}
