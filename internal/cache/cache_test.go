package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := New[string](5*time.Minute, 100)
	require.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SetAndGet(t *testing.T) {
	c := New[bool](5*time.Minute, 100)

	c.Set("claude", true)

	got, ok := c.Get("claude")
	assert.True(t, ok, "entry should exist")
	assert.True(t, got)
}

func TestCache_GetNonExistent(t *testing.T) {
	c := New[bool](5*time.Minute, 100)

	_, ok := c.Get("missing")
	assert.False(t, ok, "non-existent entry should return false")
}

func TestCache_ExpiredEntry(t *testing.T) {
	// Short TTL for testing
	c := New[string](100*time.Millisecond, 100)

	c.Set("key", "value")

	_, ok := c.Get("key")
	assert.True(t, ok, "entry should exist immediately")

	// Wait for expiry
	time.Sleep(150 * time.Millisecond)

	_, ok = c.Get("key")
	assert.False(t, ok, "entry should be expired")
	assert.Equal(t, 0, c.Len(), "expired entry should be removed")
}

func TestCache_Delete(t *testing.T) {
	c := New[int](5*time.Minute, 100)

	c.Set("key", 42)
	_, ok := c.Get("key")
	assert.True(t, ok)

	c.Delete("key")

	_, ok = c.Get("key")
	assert.False(t, ok, "entry should be deleted")
}

func TestCache_DeleteNonExistent(t *testing.T) {
	c := New[int](5*time.Minute, 100)

	assert.NotPanics(t, func() {
		c.Delete("missing")
	})
}

func TestCache_Clear(t *testing.T) {
	c := New[int](5*time.Minute, 100)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}
	assert.Equal(t, 5, c.Len())

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("key-0")
	assert.False(t, ok)
}

func TestCache_LRUEviction(t *testing.T) {
	c := New[int](5*time.Minute, 3)

	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)
	c.Set("b", 2)
	time.Sleep(5 * time.Millisecond)
	c.Set("c", 3)

	// Touch "a" so "b" becomes least recently used
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("a")
	require.True(t, ok)

	// Adding a fourth entry evicts "b"
	c.Set("d", 4)

	_, ok = c.Get("b")
	assert.False(t, ok, "LRU entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	_, ok = c.Get("d")
	assert.True(t, ok)
}

func TestCache_SetExistingAtCapacity(t *testing.T) {
	c := New[int](5*time.Minute, 2)

	c.Set("a", 1)
	c.Set("b", 2)

	// Replacing an existing key must not evict anything
	c.Set("a", 10)

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, got)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCache_Stats(t *testing.T) {
	c := New[int](5*time.Minute, 2)

	c.Set("a", 1)
	c.Get("a")       // hit
	c.Get("missing") // miss
	c.Set("b", 2)
	c.Set("c", 3) // evicts

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Size)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](5*time.Minute, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, c.Len())
}
