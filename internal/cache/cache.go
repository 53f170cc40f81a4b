// Package cache provides thread-safe in-memory caching with TTL and LRU
// eviction. Used for agent availability probes and other short-lived
// lookups that are expensive to recompute.
//
// Example usage:
//
//	c := cache.New[bool](30*time.Second, 100)
//	c.Set("claude", true)
//	available, ok := c.Get("claude")
package cache

import (
	"sync"
	"time"
)

// entry wraps a cached value with expiry and LRU bookkeeping.
type entry[V any] struct {
	value        V
	expiresAt    time.Time
	createdAt    time.Time
	lastAccessed time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// Cache provides thread-safe caching with TTL and LRU eviction.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]*entry[V]
	ttl        time.Duration
	maxEntries int

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache with the specified TTL and maximum entries.
// When at capacity, setting a new key evicts the least recently used entry.
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]*entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Set stores a value under key, replacing any existing entry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRU()
		}
	}

	c.entries[key] = &entry[V]{
		value:        value,
		expiresAt:    now.Add(c.ttl),
		createdAt:    now,
		lastAccessed: now,
	}
}

// Get retrieves the value for key. Expired entries are removed and
// reported as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	c.mu.Lock()
	e.lastAccessed = time.Now()
	c.hits++
	c.mu.Unlock()

	return e.value, true
}

// Delete removes an entry. No-op if the key is absent.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Len returns the number of live entries, including any not yet
// evicted by expiry.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}

// evictLRU removes the least recently used entry.
// Caller must hold the write lock.
func (c *Cache[V]) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	first := true
	for key, e := range c.entries {
		if first || e.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessed
			first = false
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}
