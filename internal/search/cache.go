package search

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// CacheTTL bounds staleness of cached result pages
	CacheTTL = 5 * time.Minute

	// CacheCapacity bounds the number of cached pages
	CacheCapacity = 100
)

type cacheKey struct {
	query string
	page  int
	scope string
}

type cacheEntry struct {
	results  []Result
	total    int
	storedAt time.Time
}

// Cache maps (normalized query, page, scope) to a previously computed page
// of results plus the total count. Entries expire after CacheTTL; a bulk
// catalog mutation clears everything, since per-key invalidation is not
// tracked.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[cacheKey, cacheEntry]
	ttl time.Duration
}

// NewCache creates a cache with the standard bounds
func NewCache() (*Cache, error) {
	return NewCacheWithTTL(CacheTTL)
}

// NewCacheWithTTL creates a cache with a custom TTL. Test use.
func NewCacheWithTTL(ttl time.Duration) (*Cache, error) {
	c, err := lru.New[cacheKey, cacheEntry](CacheCapacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c, ttl: ttl}, nil
}

func makeKey(query string, page int, scope string) cacheKey {
	return cacheKey{query: strings.ToLower(query), page: page, scope: scope}
}

// Get returns the cached page for (query, page, scope), or ok=false on a
// miss. A hit older than the TTL is evicted and reported as a miss.
func (c *Cache) Get(query string, page int, scope string) (results []Result, total int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(query, page, scope)
	e, found := c.lru.Get(key)
	if !found {
		return nil, 0, false
	}
	if time.Since(e.storedAt) >= c.ttl {
		c.lru.Remove(key)
		return nil, 0, false
	}
	return e.results, e.total, true
}

// Put stores a computed page. Key collision overwrites.
func (c *Cache) Put(query string, page int, scope string, results []Result, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(makeKey(query, page, scope), cacheEntry{
		results:  results,
		total:    total,
		storedAt: time.Now(),
	})
}

// InvalidateAll clears the entire cache. Called after any bulk mutation to
// the catalog.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len reports the number of cached pages
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
