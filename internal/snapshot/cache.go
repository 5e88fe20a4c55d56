package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cache is the injectable raw-observation cache. Keys are derived from
// (series, date); invalidation is explicit, never implicit module state.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool)
	Set(ctx context.Context, key string, value float64)
	Invalidate(ctx context.Context, key string)
	InvalidateAll(ctx context.Context)
}

// CacheKey builds the canonical cache key for a series observation.
func CacheKey(seriesName string, date time.Time) string {
	return fmt.Sprintf("mac:obs:%s:%s", seriesName, date.Format("2006-01-02"))
}

// MemoryCache is a TTL map cache for single-process runs.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	value   float64
	expires time.Time
}

// NewMemoryCache creates an in-memory cache. A zero TTL means entries
// never expire, which suits backtests over immutable history.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		return 0, false
	}
	return entry.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{value: value}
	if c.ttl > 0 {
		entry.expires = time.Now().Add(c.ttl)
	}
	c.entries[key] = entry
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// Len returns the number of cached entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
