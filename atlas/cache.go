package atlas

import "sync"

// glyphCache is a generic thread-safe LRU cache with soft limit.
// When the cache exceeds softLimit, oldest entries are evicted.
// Used for on-demand rasterized glyph images that fall outside the
// prebuilt atlas ranges.
//
// glyphCache is safe for concurrent use.
type glyphCache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*glyphCacheEntry[V]
	softLimit int
	tick      int64 // Monotonic access counter
}

// glyphCacheEntry holds a cached value with its access time.
type glyphCacheEntry[V any] struct {
	value V
	atime int64
}

// newGlyphCache creates a cache with the given soft limit.
// A softLimit of 0 means unlimited.
func newGlyphCache[K comparable, V any](softLimit int) *glyphCache[K, V] {
	return &glyphCache[K, V]{
		entries:   make(map[K]*glyphCacheEntry[V]),
		softLimit: softLimit,
	}
}

// get retrieves a value and refreshes its access time.
func (c *glyphCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.tick++
	entry.atime = c.tick
	return entry.value, true
}

// set stores a value, evicting the oldest entry when over the limit.
func (c *glyphCache[K, V]) set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	c.entries[key] = &glyphCacheEntry[V]{value: value, atime: c.tick}
	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}
}

// clear drops every entry. Called when the atlas is disposed.
func (c *glyphCache[K, V]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*glyphCacheEntry[V])
}

// evictOldest removes the least recently used entry.
// Caller must hold c.mu.
func (c *glyphCache[K, V]) evictOldest() {
	var (
		oldestKey  K
		oldestTime int64 = -1
	)
	for key, entry := range c.entries {
		if oldestTime < 0 || entry.atime < oldestTime {
			oldestKey = key
			oldestTime = entry.atime
		}
	}
	if oldestTime >= 0 {
		delete(c.entries, oldestKey)
	}
}
