// Package bookhive wires the BookHive backend core: the response
// cache, the admin notification fan-out, and the optional Redis layer
// that shares both across instances.
package bookhive

import (
	"context"
	"time"

	"github.com/bookhive/bookhive/cache"
	"github.com/bookhive/bookhive/notify"
	"github.com/bookhive/bookhive/storage"
	bhsync "github.com/bookhive/bookhive/sync"
	"github.com/bookhive/bookhive/types"
)

// Logger is an alias for types.Logger.
type Logger = types.Logger

// NotificationEvent is an alias for types.NotificationEvent.
type NotificationEvent = types.NotificationEvent

// Stats is an alias for cache.Stats.
type Stats = cache.Stats

// Config configures a Core instance.
type Config struct {
	// InstanceID uniquely identifies this server instance on the
	// sync channel. Required.
	InstanceID string

	// CacheTTL is how long cached responses stay valid. Default 60s.
	CacheTTL time.Duration

	// CacheMaxEntries bounds the local cache tier. Default 4096.
	CacheMaxEntries int

	// CacheBackend selects the local tier: "lru" (default) or "lfu".
	CacheBackend string

	// RedisAddr enables the shared cache tier and cross-instance
	// fan-out when set. Empty means single-instance operation.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SyncChannel is the pub/sub channel name. Default "bookhive:sync".
	SyncChannel string

	// OutboxQueueSize bounds pending admin broadcasts. Default 256.
	OutboxQueueSize int

	// OutboxMaxRetries bounds peer publish retries. Default 3.
	OutboxMaxRetries int

	// Logger is used by every component. Defaults to no-op.
	Logger Logger
}

// Core holds the initialized components.
type Core struct {
	Cache  *cache.ResponseCache
	Hub    *notify.Hub
	Outbox *notify.Outbox
	Events *notify.Broadcaster

	remote       *storage.RedisStore
	synchronizer *bhsync.PubSubSynchronizer
}

// New initializes the backend core. With no Redis configured the
// cache is local-only and broadcasts reach only this instance's admin
// sessions; both degrade silently rather than failing startup.
func New(cfg Config) (*Core, error) {
	if cfg.InstanceID == "" {
		return nil, cache.ErrInvalidConfig
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = cache.DefaultLocalCacheConfig().MaxEntries
	}
	if cfg.SyncChannel == "" {
		cfg.SyncChannel = "bookhive:sync"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = cache.NewNoOpLogger()
	}

	core := &Core{}

	if cfg.RedisAddr != "" {
		remote, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		core.remote = remote
		core.synchronizer = bhsync.NewPubSubSynchronizer(remote.GetClient(), cfg.SyncChannel, cfg.InstanceID)
	}

	localCfg := cache.DefaultLocalCacheConfig()
	localCfg.TTL = cfg.CacheTTL
	localCfg.MaxEntries = cfg.CacheMaxEntries

	opts := cache.Options{
		InstanceID:       cfg.InstanceID,
		LocalCacheConfig: localCfg,
		Logger:           logger,
	}
	if cfg.CacheBackend == "lfu" {
		opts.LocalCacheFactory = cache.NewLFUCacheFactory(localCfg)
	}
	if core.remote != nil {
		opts.Store = core.remote
	}
	if core.synchronizer != nil {
		opts.Synchronizer = core.synchronizer
	}

	responseCache, err := cache.New(opts)
	if err != nil {
		core.Close()
		return nil, err
	}
	core.Cache = responseCache

	core.Hub = notify.NewHub(logger)

	outboxCfg := notify.OutboxConfig{
		Hub:        core.Hub,
		InstanceID: cfg.InstanceID,
		QueueSize:  cfg.OutboxQueueSize,
		MaxRetries: cfg.OutboxMaxRetries,
		Logger:     logger,
	}
	if core.synchronizer != nil {
		outboxCfg.Publisher = core.synchronizer
	}
	core.Outbox = notify.NewOutbox(outboxCfg)
	core.Events = notify.NewBroadcaster(core.Outbox, logger)

	if core.synchronizer != nil {
		core.synchronizer.OnEvent(core.Outbox.HandleSyncEvent)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := core.synchronizer.Subscribe(ctx); err != nil {
			core.Close()
			return nil, err
		}
	}

	return core, nil
}

// Close shuts the core down, draining the outbox first so queued
// broadcasts are not lost.
func (c *Core) Close() error {
	var firstErr error

	if c.Outbox != nil {
		c.Outbox.Close()
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.synchronizer != nil {
		if err := c.synchronizer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.remote != nil {
		if err := c.remote.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
