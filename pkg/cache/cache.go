// Package cache keeps recent GET responses of read-mostly endpoints, such as
// the public map and the reference data lists, until a write purges them or
// their TTL runs out.
package cache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// Response is a stored HTTP response body.
type Response struct {
	Body        []byte
	ContentType string
	expiresAt   time.Time
}

// Cache is a size-bounded LRU of responses with a fixed TTL. It is safe for
// concurrent use. A nil *Cache stores nothing.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
	// gen counts purges.
	gen uint64
}

// New creates a cache holding at most maxEntries responses for ttl each.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = DefaultConfig().TTL
	}
	return &Cache{lru: lru.New(maxEntries), ttl: ttl, now: time.Now}
}

// Get returns the live response stored under key. Expired entries are
// dropped on access.
func (c *Cache) Get(key string) (Response, bool) {
	if c == nil {
		return Response{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		return Response{}, false
	}
	resp := v.(Response)
	if c.now().After(resp.expiresAt) {
		c.lru.Remove(key)
		return Response{}, false
	}
	return resp, true
}

// Set stores resp under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Set(key string, resp Response) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	resp.expiresAt = c.now().Add(c.ttl)
	c.lru.Add(key, resp)
}

// Generation returns a token that changes on every Purge.
func (c *Cache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfCurrent stores resp like Set, unless the cache was purged since gen
// was read. It reports whether resp was stored.
func (c *Cache) SetIfCurrent(key string, resp Response, gen uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	resp.expiresAt = c.now().Add(c.ttl)
	c.lru.Add(key, resp)
	return true
}

// Purge drops every entry.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
	c.gen++
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
