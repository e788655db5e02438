package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/cultura/internal/model"
)

func TestAnalysisKey(t *testing.T) {
	a := AnalysisKey("aGVsbG8=")
	b := AnalysisKey("aGVsbG8=")
	c := AnalysisKey("d29ybGQ=")

	if a != b {
		t.Error("Expected identical payloads to share a key")
	}
	if a == c {
		t.Error("Expected different payloads to produce different keys")
	}
	if !strings.HasPrefix(a, KeyPrefix) || len(a) != len(KeyPrefix)+64 {
		t.Errorf("Unexpected key format: %s", a)
	}
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)

	value := []byte(`{"titulo":"Kotosh"}`)
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X' // caller mutation must not leak into the cache

	got, ok := c.Get("k")
	if !ok || string(got) != `{"titulo":"Kotosh"}` {
		t.Fatalf("Unexpected value: %q (found=%v)", got, ok)
	}

	got[0] = 'Y'
	again, _ := c.Get("k")
	if again[0] != '{' {
		t.Error("Expected Get to return a copy")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	_ = c.Set("k", []byte(`1`), 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	_ = c.Set("a", []byte(`1`), 0)
	_ = c.Set("b", []byte(`2`), 0)

	_ = c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("Expected a to be deleted")
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}

	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d", c.Len())
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	key := AnalysisKey("aGVsbG8=")
	if err := c.Set(key, []byte(`{"confianza":0.9}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get(key)
	if !ok || string(got) != `{"confianza":0.9}` {
		t.Fatalf("Unexpected value: %q (found=%v)", got, ok)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || strings.Contains(entries[0].Name(), ":") {
		t.Errorf("Expected one sanitized cache file, got %v", entries)
	}
}

func TestDiskCache_RejectsNonJSON(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Set("k", []byte("not json"), 0); err == nil {
		t.Error("Expected error for non-JSON value")
	}
}

func TestDiskCache_Expired(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	_ = c.Set("k", []byte(`1`), time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected expired entry to be ignored")
	}
	if _, err := os.Stat(filepath.Join(dir, "k.cache")); !os.IsNotExist(err) {
		t.Error("Expected expired entry file to be removed")
	}
}

func TestDiskCache_DeleteMissing(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Delete("missing"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestDiskCache_ConcurrentSet(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set("same", []byte(`{"titulo":"Kotosh"}`), 0)
		}()
	}
	wg.Wait()

	got, ok := c.Get("same")
	if !ok || string(got) != `{"titulo":"Kotosh"}` {
		t.Errorf("Unexpected value after concurrent writes: %q", got)
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Hour, 0, dir, time.Hour)

	// Written by a previous process
	if err := NewDiskCache(dir, time.Hour).Set("k", []byte(`"v"`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get("k")
	if !ok || string(got) != `"v"` {
		t.Fatalf("Expected disk hit, got %q", got)
	}
	if _, ok := c.memory.Get("k"); !ok {
		t.Error("Expected value to be promoted to memory")
	}
	if _, ok := c.Get("k"); !ok {
		t.Error("Expected memory hit")
	}
	if got, want := c.Stats(), (Stats{MemoryHits: 1, DiskHits: 1}); got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}

	if err := c.Delete("k"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Expected value to be gone from both layers")
	}
}

func TestLayeredCache_PromotionKeepsDiskExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Hour, 0, dir, time.Hour)

	if err := c.disk.Set("short", []byte(`1`), 50*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get("short"); !ok {
		t.Fatal("Expected disk hit")
	}

	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("Promoted entry outlived its disk expiry")
	}
	if got := c.Stats().Misses; got != 1 {
		t.Errorf("Expected 1 miss, got %d", got)
	}
}

func TestNew(t *testing.T) {
	if c := New(model.CacheConfig{Enabled: false}); c != nil {
		t.Errorf("Expected nil cache when disabled, got %T", c)
	}
	if _, ok := New(model.CacheConfig{Enabled: true, MemoryTTL: time.Hour}).(*MemoryCache); !ok {
		t.Error("Expected memory cache without disk dir")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, MemoryTTL: time.Hour, DiskDir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("Expected layered cache with disk dir")
	}
}
