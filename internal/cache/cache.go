package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/cultura/internal/model"
)

// KeyPrefix namespaces analysis entries; bump the version when the cached
// result shape changes
const KeyPrefix = "cultural_analysis:v1:"

// Cache defines the key-value store the analyzer depends on
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// AnalysisKey derives the cache key from the canonical base64 image payload
func AnalysisKey(imageBase64 string) string {
	hash := sha256.Sum256([]byte(imageBase64))
	return KeyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg: nil when disabled, memory-only
// without a disk directory, memory over disk otherwise.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir == "" {
		return NewMemoryCache(cfg.MemoryTTL, cfg.CleanupInterval)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.CleanupInterval, cfg.DiskDir, cfg.MemoryTTL)
}
