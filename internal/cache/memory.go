package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements in-process caching with per-entry expiry
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache. A cleanupInterval of zero
// disables the background janitor; expired entries are still never returned.
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a copy of a value from the cache
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return clone(val.([]byte)), true
	}
	return nil, false
}

// Set stores a copy of value with the given TTL (zero means the default TTL)
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, clone(value), ttl)
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
