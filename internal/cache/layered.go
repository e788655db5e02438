package cache

import (
	"errors"
	"sync/atomic"
	"time"
)

// LayeredCache keeps hot analyses in memory over a disk tier that survives
// restarts. Disk hits are promoted to memory for their remaining lifetime.
type LayeredCache struct {
	memory    *MemoryCache
	disk      *DiskCache
	memoryTTL time.Duration

	memoryHits atomic.Int64
	diskHits   atomic.Int64
	misses     atomic.Int64
}

// Stats counts lookups per tier
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
}

// NewLayeredCache creates a memory tier over a disk tier rooted at diskDir
func NewLayeredCache(memoryTTL, cleanupInterval time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory:    NewMemoryCache(memoryTTL, cleanupInterval),
		disk:      NewDiskCache(diskDir, diskTTL),
		memoryTTL: memoryTTL,
	}
}

// Get checks memory first, then disk
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.memory.Get(key); ok {
		c.memoryHits.Add(1)
		return val, true
	}

	entry, ok := c.disk.entry(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.diskHits.Add(1)

	ttl := time.Until(entry.ExpiresAt)
	if c.memoryTTL > 0 && ttl > c.memoryTTL {
		ttl = c.memoryTTL
	}
	if ttl > 0 {
		_ = c.memory.Set(key, entry.Data, ttl)
	}
	return entry.Data, true
}

// Set writes both tiers; the disk write decides the error
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	memTTL := ttl
	if c.memoryTTL > 0 && (memTTL == 0 || memTTL > c.memoryTTL) {
		memTTL = c.memoryTTL
	}
	_ = c.memory.Set(key, value, memTTL)
	return c.disk.Set(key, value, ttl)
}

// Delete removes key from both tiers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

// Clear empties both tiers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}

// Stats returns lookup counters since construction
func (c *LayeredCache) Stats() Stats {
	return Stats{
		MemoryHits: c.memoryHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
	}
}
