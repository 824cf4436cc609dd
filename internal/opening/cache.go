package opening

import (
	"context"
	"sync"
	"time"
)

// CachedProvider memoizes provider responses per (unit, date) so repeated
// validations within a request burst do not hammer the external service.
type CachedProvider struct {
	mu         sync.RWMutex
	inner      Provider
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[cacheKey]cacheEntry
}

type cacheKey struct {
	unitID string
	date   string
}

type cacheEntry struct {
	spans     []TimeSpan
	expiresAt time.Time
}

// NewCachedProvider wraps the inner provider with a TTL cache. Non-positive
// ttl and maxEntries fall back to 5 minutes and 256 entries.
func NewCachedProvider(inner Provider, ttl time.Duration, maxEntries int, now func() time.Time) *CachedProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &CachedProvider{
		inner:      inner,
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[cacheKey]cacheEntry),
	}
}

// OpenTimeSpans returns cached spans when fresh, otherwise queries the inner
// provider. Provider errors are never cached.
func (c *CachedProvider) OpenTimeSpans(ctx context.Context, reservationUnitID string, date time.Time) ([]TimeSpan, error) {
	key := cacheKey{unitID: reservationUnitID, date: date.Format("2006-01-02")}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return cloneSpans(entry.spans), nil
	}

	spans, err := c.inner.OpenTimeSpans(ctx, reservationUnitID, date)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = cacheEntry{spans: cloneSpans(spans), expiresAt: c.now().Add(c.ttl)}

	return spans, nil
}

// Invalidate drops every cached entry.
func (c *CachedProvider) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

func (c *CachedProvider) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *CachedProvider) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSpans(spans []TimeSpan) []TimeSpan {
	if len(spans) == 0 {
		return nil
	}
	out := make([]TimeSpan, len(spans))
	copy(out, spans)
	return out
}
