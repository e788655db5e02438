package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache implements persistent disk-based caching, one file per key
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
	}
}

type cacheEntry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(key string) ([]byte, bool) {
	entry, ok := c.entry(key)
	if !ok {
		return nil, false
	}
	return entry.Data, true
}

// entry reads a live entry; expired files are removed
func (c *DiskCache) entry(key string) (*cacheEntry, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false
	}
	return &entry, true
}

// Set stores a value in the disk cache. Values must be JSON documents.
// Writes go through a temp file so concurrent writers never leave a torn entry.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	if !json.Valid(value) {
		return fmt.Errorf("cache value for %s is not JSON", key)
	}

	entry := cacheEntry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit cache file: %w", err)
	}

	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path generates the file path for a cache key
func (c *DiskCache) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", `\`, "_").Replace(key)
	return filepath.Join(c.dir, name+".cache")
}
