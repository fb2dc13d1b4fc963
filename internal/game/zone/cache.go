package zone

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of region ids memoized by a Cache.
const DefaultCacheSize = 100

// CacheObserver receives hit/miss notifications (metrics).
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

type cacheEntry struct {
	gated      bool
	generation uint64
}

// Cache memoizes "is this region a gated zone" with LRU eviction.
// Entries are stamped with the catalog generation they were computed from;
// an entry from an older generation is a miss, so a reload invalidates the
// cache wholesale even for lookups racing with it.
type Cache struct {
	catalog  *Catalog
	entries  *lru.Cache[string, cacheEntry]
	observer CacheObserver
}

// NewCache creates a cache of the given capacity over catalog.
// size <= 0 selects DefaultCacheSize.
func NewCache(catalog *Catalog, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating zone cache: %w", err)
	}
	return &Cache{catalog: catalog, entries: entries}, nil
}

// SetObserver installs a hit/miss observer. Not safe to call concurrently
// with lookups; wire it before use.
func (c *Cache) SetObserver(o CacheObserver) {
	c.observer = o
}

// IsGatedZone reports whether regionID has a zone binding.
func (c *Cache) IsGatedZone(regionID string) bool {
	if regionID == "" {
		return false
	}

	t := c.catalog.snapshot()
	if e, ok := c.entries.Get(regionID); ok && e.generation == t.generation {
		if c.observer != nil {
			c.observer.CacheHit()
		}
		return e.gated
	}

	if c.observer != nil {
		c.observer.CacheMiss()
	}
	_, gated := t.bindings[regionID]
	c.entries.Add(regionID, cacheEntry{gated: gated, generation: t.generation})
	return gated
}

// Purge drops every entry. Called after a catalog reload.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len returns the number of memoized entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
