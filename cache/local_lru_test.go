package cache

import (
	"testing"
	"time"
)

func TestLRUCacheNew(t *testing.T) {
	cache, err := NewLRUCache(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()
}

func TestLRUCacheNewInvalid(t *testing.T) {
	if _, err := NewLRUCache(0, time.Minute); err == nil {
		t.Fatal("Expected error for zero capacity")
	}
	if _, err := NewLRUCache(100, 0); err == nil {
		t.Fatal("Expected error for zero TTL")
	}
}

func TestLRUCacheSetGet(t *testing.T) {
	cache, err := NewLRUCache(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	if ok := cache.Set("key1", []byte("value1")); !ok {
		t.Fatal("Set should succeed")
	}

	value, found := cache.Get("key1")
	if !found {
		t.Fatal("Value should be found")
	}
	if string(value) != "value1" {
		t.Fatalf("Expected value1, got %s", value)
	}
}

func TestLRUCacheGetMissing(t *testing.T) {
	cache, err := NewLRUCache(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	if _, found := cache.Get("nope"); found {
		t.Fatal("Missing key should not be found")
	}
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	cache, err := NewLRUCache(100, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	cache.Set("key1", []byte("value1"))

	if _, found := cache.Get("key1"); !found {
		t.Fatal("Value should be found before TTL")
	}

	time.Sleep(80 * time.Millisecond)

	if _, found := cache.Get("key1"); found {
		t.Fatal("Value should have expired")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	cache, err := NewLRUCache(2, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	cache.Set("a", []byte("1"))
	cache.Set("b", []byte("2"))
	cache.Set("c", []byte("3"))

	if _, found := cache.Get("a"); found {
		t.Fatal("Oldest entry should have been evicted")
	}
	if m := cache.Metrics(); m.Evictions == 0 {
		t.Fatal("Eviction should be counted")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	cache, err := NewLRUCache(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	cache.Set("key1", []byte("value1"))
	cache.Delete("key1")

	if _, found := cache.Get("key1"); found {
		t.Fatal("Deleted key should not be found")
	}
}

func TestLRUCacheKeys(t *testing.T) {
	cache, err := NewLRUCache(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	cache.Set("a", []byte("1"))
	cache.Set("b", []byte("2"))

	keys := cache.Keys()
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %d", len(keys))
	}
}

func TestLRUCacheClear(t *testing.T) {
	cache, err := NewLRUCache(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	cache.Set("a", []byte("1"))
	cache.Set("b", []byte("2"))
	cache.Clear()

	if len(cache.Keys()) != 0 {
		t.Fatal("Clear should remove all keys")
	}
}

func TestLRUCacheMetrics(t *testing.T) {
	cache, err := NewLRUCache(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	cache.Set("a", []byte("1"))
	cache.Get("a")
	cache.Get("missing")

	m := cache.Metrics()
	if m.Hits != 1 {
		t.Fatalf("Expected 1 hit, got %d", m.Hits)
	}
	if m.Misses != 1 {
		t.Fatalf("Expected 1 miss, got %d", m.Misses)
	}
	if m.Size != 1 {
		t.Fatalf("Expected size 1, got %d", m.Size)
	}
}
