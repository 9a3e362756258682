package cache

import (
	"time"
)

// DefaultTTL is how long a cached response stays valid.
const DefaultTTL = 60 * time.Second

// LocalCacheConfig configures the local cache tier.
type LocalCacheConfig struct {
	// TTL is the time-to-live applied to every entry.
	TTL time.Duration

	// MaxEntries bounds the number of resident entries (LRU only).
	MaxEntries int

	// NumCounters is the number of access counters (LFU only).
	// Recommended: 10 * expected max entries.
	NumCounters int64

	// MaxCost is the maximum total cost of resident entries (LFU only).
	MaxCost int64

	// BufferItems is the size of the LFU admission buffer (LFU only).
	BufferItems int64
}

// Options configures a ResponseCache instance.
type Options struct {
	// InstanceID uniquely identifies this server instance.
	// Used to filter self-originated events on the pub/sub channel.
	InstanceID string

	// LocalCacheConfig configures the local cache tier.
	LocalCacheConfig LocalCacheConfig

	// LocalCacheFactory creates the local cache tier.
	// If nil, defaults to the LRU factory.
	LocalCacheFactory LocalCacheFactory

	// Store is the optional remote tier. When nil the cache is
	// local-only and invalidations do not reach peer instances.
	Store Store

	// Synchronizer propagates invalidations to peers. Optional.
	Synchronizer Synchronizer

	// Logger is the logger for cache activity.
	// If nil, defaults to no-op.
	Logger Logger

	// OnError is called when an error occurs in background operations.
	OnError func(error)
}

// DefaultOptions returns default response cache options.
func DefaultOptions() Options {
	return Options{
		InstanceID:       "bookhive-1",
		LocalCacheConfig: DefaultLocalCacheConfig(),
	}
}

// DefaultLocalCacheConfig returns default local cache configuration.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return LocalCacheConfig{
		TTL:         DefaultTTL,
		MaxEntries:  4096,
		NumCounters: 40960,
		MaxCost:     1 << 26, // 64MB
		BufferItems: 64,
	}
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.InstanceID == "" {
		return ErrInvalidConfig
	}
	if o.LocalCacheConfig.TTL <= 0 {
		return ErrInvalidConfig
	}
	if o.LocalCacheConfig.MaxEntries <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
