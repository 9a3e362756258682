package cache

import (
	"context"

	"github.com/bookhive/bookhive/types"
)

// Logger is an alias for types.Logger.
type Logger = types.Logger

// Marshaller is an alias for types.Marshaller.
type Marshaller = types.Marshaller

// LocalCache defines the interface for the in-process cache tier.
// Values are serialized response payloads; the TTL is fixed per cache
// instance and enforced by the implementation.
type LocalCache interface {
	// Get retrieves a value. An entry past its TTL is a miss.
	Get(key string) ([]byte, bool)

	// Set stores a value with the cache's configured TTL.
	Set(key string, value []byte) bool

	// Delete removes a value.
	Delete(key string)

	// Keys returns the keys currently resident. Used for substring
	// invalidation; implementations without native enumeration keep a
	// side index.
	Keys() []string

	// Clear removes all values.
	Clear()

	// Close closes the cache.
	Close()

	// Metrics returns cache metrics.
	Metrics() LocalCacheMetrics
}

// LocalCacheMetrics represents local cache metrics.
type LocalCacheMetrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
}

// LocalCacheFactory defines the interface for creating local cache
// implementations.
type LocalCacheFactory interface {
	// Create creates a new local cache instance.
	Create() (LocalCache, error)
}

// Cache is the response cache used to shortcut repeated GET requests.
// Only successful GET responses are stored; the HTTP layer enforces
// the method restriction.
type Cache interface {
	// Get retrieves a cached response payload for key.
	// Returns the payload and true on a hit, nil and false otherwise.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a response payload under key with the configured TTL.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes exactly one entry, locally and (when configured)
	// on the remote tier and peer instances.
	Delete(ctx context.Context, key string) error

	// Invalidate removes every entry whose key contains substr and no
	// others, locally and (when configured) on the remote tier and
	// peer instances. Returns the number of local keys removed.
	Invalidate(ctx context.Context, substr string) (int, error)

	// Clear removes all entries everywhere.
	Clear(ctx context.Context) error

	// Stats returns cache statistics.
	Stats() Stats

	// Close closes the cache and releases all resources.
	Close() error
}

// Store defines the interface for the remote cache tier (Redis).
type Store interface {
	// Get retrieves a value from the store.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. The store applies the cache TTL server-side.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value from the store.
	Delete(ctx context.Context, key string) error

	// Invalidate removes every key containing substr and returns the
	// number removed.
	Invalidate(ctx context.Context, substr string) (int, error)

	// Clear removes all values from the store.
	Clear(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

// Synchronizer defines the interface for propagating cache and
// broadcast events across instances.
type Synchronizer interface {
	// Subscribe starts listening for events from peers.
	Subscribe(ctx context.Context) error

	// Publish publishes an event to peers.
	Publish(ctx context.Context, event types.SyncEvent) error

	// OnEvent registers a callback invoked for events from peers.
	OnEvent(callback func(event types.SyncEvent))

	// Close closes the synchronizer.
	Close() error
}

// Stats represents response cache statistics.
type Stats struct {
	LocalHits     int64
	LocalMisses   int64
	RemoteHits    int64
	RemoteMisses  int64
	Invalidations int64
}
