// Package cache provides a small bounded in-memory cache with TTL
// expiry. Two independent instances front the document store: one for
// document metadata and one for chunk lists.
package cache

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

type entry[T any] struct {
	value   T
	touched time.Time
}

// Cache is a mutex-guarded map with a maximum entry count and per-entry
// TTL. Get refreshes an entry's touch time, and Put evicts the
// oldest-touched entries once the bound is exceeded, approximating LRU.
type Cache[T any] struct {
	mu         sync.Mutex
	entries    map[string]entry[T]
	maxEntries int
	ttl        time.Duration
	name       string
	logger     arbor.ILogger

	// now is swappable for tests
	now func() time.Time
}

// New creates a cache holding at most maxEntries values for at most ttl.
func New[T any](name string, maxEntries int, ttl time.Duration, logger arbor.ILogger) *Cache[T] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache[T]{
		entries:    make(map[string]entry[T]),
		maxEntries: maxEntries,
		ttl:        ttl,
		name:       name,
		logger:     logger,
		now:        time.Now,
	}
}

// Get returns the cached value for key. Expired entries are removed and
// reported as misses. A hit refreshes the entry's touch time.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}

	now := c.now()
	if c.ttl > 0 && now.Sub(e.touched) > c.ttl {
		delete(c.entries, key)
		var zero T
		return zero, false
	}

	e.touched = now
	c.entries[key] = e
	return e.value, true
}

// Put stores a value, evicting the oldest-touched entries if the cache
// is over its bound afterwards.
func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[T]{value: value, touched: c.now()}

	for len(c.entries) > c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.touched.Before(oldest) {
				oldestKey = k
				oldest = e.touched
			}
		}
		delete(c.entries, oldestKey)
		if c.logger != nil {
			c.logger.Trace().
				Str("cache", c.name).
				Str("key", oldestKey).
				Msg("Evicted oldest cache entry")
		}
	}
}

// Invalidate removes a single entry
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Len returns the current entry count
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
