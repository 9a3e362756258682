package cache

import (
	"sync"
	"sync/atomic"
	"time"

	lfu "github.com/dgraph-io/ristretto"
)

// LFUCacheFactory creates Ristretto cache instances.
type LFUCacheFactory struct {
	config LocalCacheConfig
}

// NewLFUCacheFactory creates a new Ristretto cache factory.
func NewLFUCacheFactory(config LocalCacheConfig) LocalCacheFactory {
	return &LFUCacheFactory{config: config}
}

// Create creates a new Ristretto cache instance.
func (rcf *LFUCacheFactory) Create() (LocalCache, error) {
	return NewLFUCache(rcf.config)
}

// LFUCache is a local cache tier built on Ristretto. Ristretto does
// not enumerate keys, so a side index of key -> expiry is kept for
// substring invalidation. Keys evicted by Ristretto's admission
// policy linger in the index until their TTL passes or a lookup
// notices they are gone.
type LFUCache struct {
	cache  *lfu.Cache
	ttl    time.Duration
	mu     sync.RWMutex
	index  map[string]time.Time
	hits   int64
	misses int64
}

// NewLFUCache creates a new Ristretto-based local cache.
func NewLFUCache(config LocalCacheConfig) (*LFUCache, error) {
	if config.TTL <= 0 {
		return nil, ErrInvalidConfig
	}

	cache, err := lfu.NewCache(&lfu.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &LFUCache{
		cache: cache,
		ttl:   config.TTL,
		index: make(map[string]time.Time),
	}, nil
}

// Get retrieves a value from the local cache.
func (rc *LFUCache) Get(key string) ([]byte, bool) {
	value, found := rc.cache.Get(key)
	if !found {
		atomic.AddInt64(&rc.misses, 1)
		rc.mu.Lock()
		delete(rc.index, key)
		rc.mu.Unlock()
		return nil, false
	}

	atomic.AddInt64(&rc.hits, 1)
	data, ok := value.([]byte)
	return data, ok
}

// Set stores a value in the local cache with the configured TTL.
func (rc *LFUCache) Set(key string, value []byte) bool {
	ok := rc.cache.SetWithTTL(key, value, int64(len(value)), rc.ttl)
	if ok {
		rc.mu.Lock()
		rc.index[key] = time.Now().Add(rc.ttl)
		rc.mu.Unlock()
	}
	return ok
}

// Delete removes a value from the local cache.
func (rc *LFUCache) Delete(key string) {
	rc.cache.Del(key)
	rc.mu.Lock()
	delete(rc.index, key)
	rc.mu.Unlock()
}

// Keys returns the indexed keys whose TTL has not passed.
func (rc *LFUCache) Keys() []string {
	now := time.Now()
	rc.mu.Lock()
	defer rc.mu.Unlock()

	keys := make([]string, 0, len(rc.index))
	for key, expiry := range rc.index {
		if now.After(expiry) {
			delete(rc.index, key)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// Wait blocks until buffered writes have been applied. Useful where
// a Set must be visible to an immediate Get.
func (rc *LFUCache) Wait() {
	rc.cache.Wait()
}

// Clear removes all values from the local cache.
func (rc *LFUCache) Clear() {
	rc.cache.Clear()
	rc.mu.Lock()
	rc.index = make(map[string]time.Time)
	rc.mu.Unlock()
}

// Close closes the local cache.
func (rc *LFUCache) Close() {
	rc.cache.Close()
}

// Metrics returns cache metrics.
func (rc *LFUCache) Metrics() LocalCacheMetrics {
	rc.mu.RLock()
	size := int64(len(rc.index))
	rc.mu.RUnlock()

	return LocalCacheMetrics{
		Hits:   atomic.LoadInt64(&rc.hits),
		Misses: atomic.LoadInt64(&rc.misses),
		Size:   size,
	}
}
