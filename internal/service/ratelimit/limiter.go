package ratelimit

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

var ErrMissingHost = errors.New("ratelimit: url has no host")

// Limiter hands out one token bucket per key (normally a feed host).
type Limiter struct {
	mu    sync.RWMutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

// New returns a limiter allowing rps requests per second per key with the given burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int) *Limiter {
	lim := rate.Limit(rps)
	if rps <= 0 {
		lim = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{m: make(map[string]*rate.Limiter), limit: lim, burst: burst}
}

// Allow reports whether one request for key may proceed now, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until key has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// WaitForURL waits on the bucket of rawURL's host, case-insensitively.
func (l *Limiter) WaitForURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ErrMissingHost
	}
	return l.Wait(ctx, host)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.m[key]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.m[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.limit, l.burst)
	l.m[key] = lim
	return lim
}
