package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LocalTTLCache is a process-local, single-writer-per-key cache over values
// that are expensive or rate-limited to refresh (admin config rows, feature
// flags, classification rules). Concurrent misses for the same key coalesce
// into one upstream fetch via singleflight; readers never block on a key
// other than their own.
type LocalTTLCache[T any] struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry[T]

	group singleflight.Group
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// NewLocalTTLCache creates a cache whose entries are considered fresh for ttl.
func NewLocalTTLCache[T any](ttl time.Duration) *LocalTTLCache[T] {
	return &LocalTTLCache[T]{ttl: ttl, entries: make(map[string]entry[T])}
}

// Get returns a fresh cached value for key if one exists.
func (c *LocalTTLCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// GetOrRefresh returns the fresh cached value for key, or calls refresh to
// populate it. N concurrent callers for the same key issue exactly one
// refresh call. On refresh failure, the stale value is returned if one
// exists (last-known-good); otherwise the zero value and the error are
// returned.
func (c *LocalTTLCache[T]) GetOrRefresh(ctx context.Context, key string, refresh func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		fresh, rerr := refresh(ctx)
		if rerr != nil {
			return nil, rerr
		}
		c.mu.Lock()
		c.entries[key] = entry[T]{value: fresh, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		c.mu.RLock()
		stale, hasStale := c.entries[key]
		c.mu.RUnlock()
		if hasStale {
			return stale.value, nil
		}
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Set directly populates key, bypassing refresh. Used by tests and by
// callers seeding a known-good value at startup.
func (c *LocalTTLCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{value: value, expiresAt: time.Now().Add(c.ttl)}
}
