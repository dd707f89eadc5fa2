package blend

import "sync"

// defaultLayoutLimit bounds the number of resolved layouts kept per file.
// Light cache extraction touches a handful of structs; Dump touches all.
const defaultLayoutLimit = 256

// layoutCache is a thread-safe LRU of resolved struct layouts with a soft
// limit. When it grows past the limit, the least recently used quarter is
// evicted.
type layoutCache struct {
	mu        sync.Mutex
	entries   map[int]*layoutEntry
	softLimit int
	tick      int64

	hits   uint64
	misses uint64
}

type layoutEntry struct {
	layout *Layout
	atime  int64
}

func newLayoutCache(softLimit int) *layoutCache {
	return &layoutCache{
		entries:   make(map[int]*layoutEntry),
		softLimit: softLimit,
	}
}

// getOrBuild returns the cached layout for struct index i or resolves it.
// build runs under the lock so a layout is resolved at most once while
// cached. Failed builds are not cached.
func (c *layoutCache) getOrBuild(i int, build func(int) (*Layout, error)) (*Layout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[i]; ok {
		e.atime = c.tick
		c.hits++
		return e.layout, nil
	}
	c.misses++

	l, err := build(i)
	if err != nil {
		return nil, err
	}
	c.entries[i] = &layoutEntry{layout: l, atime: c.tick}

	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}
	return l, nil
}

// CacheStats reports layout cache usage.
type CacheStats struct {
	Len    int
	Limit  int
	Hits   uint64
	Misses uint64
}

func (c *layoutCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Len: len(c.entries), Limit: c.softLimit, Hits: c.hits, Misses: c.misses}
}

// evictOldest drops entries until the cache is at three quarters of its
// limit. Caller must hold c.mu.
func (c *layoutCache) evictOldest() {
	target := max(c.softLimit*3/4, 1)
	toEvict := len(c.entries) - target
	if toEvict <= 0 {
		return
	}

	type entry struct {
		key   int
		atime int64
	}
	entries := make([]entry, 0, len(c.entries))
	for k, e := range c.entries {
		entries = append(entries, entry{key: k, atime: e.atime})
	}

	// Selection sort; batches are small.
	for i := 0; i < toEvict; i++ {
		minIdx := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].atime < entries[minIdx].atime {
				minIdx = j
			}
		}
		entries[i], entries[minIdx] = entries[minIdx], entries[i]
		delete(c.entries, entries[i].key)
	}
}
