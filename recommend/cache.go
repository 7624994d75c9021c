package recommend

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache stores raw successful response payloads keyed by request
// fingerprint. Implementations are best effort: a failing cache must act
// like a miss, never fail the recommendation.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, raw string)
}

const (
	// DefaultCacheSize matches the original client's 100-entry bound.
	DefaultCacheSize = 100
	// DefaultCacheTTL applies the original's one-hour cache timeout.
	DefaultCacheTTL = time.Hour
)

// CacheStats is a point-in-time view of cache effectiveness.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

type memoryEntry struct {
	key      string
	raw      string
	storedAt time.Time
}

// MemoryCache is a mutex-guarded, bounded in-process cache with LRU
// eviction and lazy TTL expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	max     int
	ttl     time.Duration
	now     func() time.Time

	hits   int64
	misses int64
}

func NewMemoryCache(max int, ttl time.Duration) *MemoryCache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		max:     max,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}
	entry := el.Value.(*memoryEntry)
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		c.misses++
		return "", false
	}
	c.order.MoveToFront(el)
	c.hits++
	return entry.raw, true
}

func (c *MemoryCache) Set(ctx context.Context, key, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.raw = raw
		entry.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&memoryEntry{key: key, raw: raw, storedAt: c.now()})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
}

func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: c.order.Len()}
}
