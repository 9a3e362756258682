package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCacheFactory creates LRU cache instances.
type LRUCacheFactory struct {
	config LocalCacheConfig
}

// NewLRUCacheFactory creates a new LRU cache factory.
func NewLRUCacheFactory(config LocalCacheConfig) LocalCacheFactory {
	return &LRUCacheFactory{config: config}
}

// Create creates a new LRU cache instance.
func (lcf *LRUCacheFactory) Create() (LocalCache, error) {
	return NewLRUCache(lcf.config.MaxEntries, lcf.config.TTL)
}

// LRUCache is the bounded local cache tier built on the expirable LRU
// from golang-lru. Entries expire after the fixed TTL and the oldest
// entry is evicted once maxEntries is reached.
type LRUCache struct {
	cache     *expirable.LRU[string, []byte]
	hits      int64
	misses    int64
	evictions int64
}

// NewLRUCache creates a new LRU-based local cache with the given
// capacity and entry TTL.
func NewLRUCache(maxEntries int, ttl time.Duration) (*LRUCache, error) {
	if maxEntries <= 0 || ttl <= 0 {
		return nil, ErrInvalidConfig
	}

	lc := &LRUCache{}
	lc.cache = expirable.NewLRU[string, []byte](maxEntries, func(string, []byte) {
		atomic.AddInt64(&lc.evictions, 1)
	}, ttl)
	return lc, nil
}

// Get retrieves a value from the local cache. Expired entries are a miss.
func (lc *LRUCache) Get(key string) ([]byte, bool) {
	value, found := lc.cache.Get(key)
	if found {
		atomic.AddInt64(&lc.hits, 1)
	} else {
		atomic.AddInt64(&lc.misses, 1)
	}
	return value, found
}

// Set stores a value in the local cache.
func (lc *LRUCache) Set(key string, value []byte) bool {
	lc.cache.Add(key, value)
	return true
}

// Delete removes a value from the local cache.
func (lc *LRUCache) Delete(key string) {
	lc.cache.Remove(key)
}

// Keys returns the resident keys, oldest first.
func (lc *LRUCache) Keys() []string {
	return lc.cache.Keys()
}

// Clear removes all values from the local cache.
func (lc *LRUCache) Clear() {
	lc.cache.Purge()
}

// Close closes the local cache.
func (lc *LRUCache) Close() {
	lc.cache.Purge()
}

// Metrics returns cache metrics.
func (lc *LRUCache) Metrics() LocalCacheMetrics {
	return LocalCacheMetrics{
		Hits:      atomic.LoadInt64(&lc.hits),
		Misses:    atomic.LoadInt64(&lc.misses),
		Evictions: atomic.LoadInt64(&lc.evictions),
		Size:      int64(lc.cache.Len()),
	}
}
