package cache

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/bookhive/bookhive/types"
)

// ResponseCache is the request-path keyed response cache. It always
// has a bounded local tier; when a remote store is configured it acts
// as a shared second tier, and when a synchronizer is configured
// invalidations are propagated to peer instances.
type ResponseCache struct {
	local        LocalCache
	store        Store
	synchronizer Synchronizer
	logger       Logger
	options      Options
	closed       int32
	stats        Stats
}

// New creates a new ResponseCache instance.
func New(opts Options) (*ResponseCache, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.LocalCacheFactory == nil {
		opts.LocalCacheFactory = NewLRUCacheFactory(opts.LocalCacheConfig)
	}
	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}

	local, err := opts.LocalCacheFactory.Create()
	if err != nil {
		return nil, err
	}

	rc := &ResponseCache{
		local:        local,
		store:        opts.Store,
		synchronizer: opts.Synchronizer,
		logger:       opts.Logger,
		options:      opts,
	}

	if rc.synchronizer != nil {
		rc.synchronizer.OnEvent(rc.handleSync)
	}

	return rc, nil
}

// Get retrieves a cached response payload for key.
func (rc *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if atomic.LoadInt32(&rc.closed) != 0 {
		return nil, false
	}

	if value, found := rc.local.Get(key); found {
		atomic.AddInt64(&rc.stats.LocalHits, 1)
		rc.logger.Debug("cache hit", "key", key)
		return value, true
	}
	atomic.AddInt64(&rc.stats.LocalMisses, 1)

	if rc.store == nil {
		return nil, false
	}

	data, err := rc.store.Get(ctx, key)
	if err != nil {
		atomic.AddInt64(&rc.stats.RemoteMisses, 1)
		return nil, false
	}
	atomic.AddInt64(&rc.stats.RemoteHits, 1)
	rc.logger.Debug("remote cache hit", "key", key)

	// Populate the local tier for subsequent reads.
	rc.local.Set(key, data)

	return data, true
}

// Set stores a response payload under key with the configured TTL.
func (rc *ResponseCache) Set(ctx context.Context, key string, value []byte) error {
	if atomic.LoadInt32(&rc.closed) != 0 {
		return ErrCacheClosed
	}

	rc.local.Set(key, value)
	rc.logger.Debug("response cached", "key", key, "ttl", rc.options.LocalCacheConfig.TTL)

	if rc.store == nil {
		return nil
	}

	if err := rc.store.Set(ctx, key, value); err != nil {
		if rc.options.OnError != nil {
			rc.options.OnError(err)
		}
		rc.logger.Warn("remote cache set failed", "key", key, "error", err)
		return err
	}

	return nil
}

// Delete removes exactly one entry. Unlike Invalidate it never
// matches siblings that contain key as a substring.
func (rc *ResponseCache) Delete(ctx context.Context, key string) error {
	if atomic.LoadInt32(&rc.closed) != 0 {
		return ErrCacheClosed
	}

	rc.local.Delete(key)
	atomic.AddInt64(&rc.stats.Invalidations, 1)
	rc.logger.Debug("cache entry deleted", "key", key)

	var firstErr error
	if rc.store != nil {
		if err := rc.store.Delete(ctx, key); err != nil {
			if rc.options.OnError != nil {
				rc.options.OnError(err)
			}
			rc.logger.Warn("remote cache delete failed", "key", key, "error", err)
			firstErr = err
		}
	}

	rc.publish(ctx, types.SyncEvent{
		Sender: rc.options.InstanceID,
		Action: types.Delete,
		Key:    key,
	})

	return firstErr
}

// Invalidate removes every entry whose key contains substr.
func (rc *ResponseCache) Invalidate(ctx context.Context, substr string) (int, error) {
	if atomic.LoadInt32(&rc.closed) != 0 {
		return 0, ErrCacheClosed
	}

	matched := rc.invalidateLocal(substr)
	rc.logger.Info("cache invalidated", "substring", substr, "keys", matched)

	var firstErr error
	if rc.store != nil {
		if _, err := rc.store.Invalidate(ctx, substr); err != nil {
			if rc.options.OnError != nil {
				rc.options.OnError(err)
			}
			rc.logger.Warn("remote cache invalidation failed", "substring", substr, "error", err)
			firstErr = err
		}
	}

	rc.publish(ctx, types.SyncEvent{
		Sender: rc.options.InstanceID,
		Action: types.Invalidate,
		Key:    substr,
	})

	return len(matched), firstErr
}

// Clear removes all entries everywhere.
func (rc *ResponseCache) Clear(ctx context.Context) error {
	if atomic.LoadInt32(&rc.closed) != 0 {
		return ErrCacheClosed
	}

	rc.local.Clear()
	atomic.AddInt64(&rc.stats.Invalidations, 1)
	rc.logger.Info("cache cleared")

	var firstErr error
	if rc.store != nil {
		if err := rc.store.Clear(ctx); err != nil {
			if rc.options.OnError != nil {
				rc.options.OnError(err)
			}
			rc.logger.Warn("remote cache clear failed", "error", err)
			firstErr = err
		}
	}

	rc.publish(ctx, types.SyncEvent{
		Sender: rc.options.InstanceID,
		Action: types.Clear,
		Key:    "*",
	})

	return firstErr
}

// Stats returns cache statistics.
func (rc *ResponseCache) Stats() Stats {
	return Stats{
		LocalHits:     atomic.LoadInt64(&rc.stats.LocalHits),
		LocalMisses:   atomic.LoadInt64(&rc.stats.LocalMisses),
		RemoteHits:    atomic.LoadInt64(&rc.stats.RemoteHits),
		RemoteMisses:  atomic.LoadInt64(&rc.stats.RemoteMisses),
		Invalidations: atomic.LoadInt64(&rc.stats.Invalidations),
	}
}

// Close closes the cache. The store and synchronizer are shared with
// other components and closed by their owner, not here.
func (rc *ResponseCache) Close() error {
	if !atomic.CompareAndSwapInt32(&rc.closed, 0, 1) {
		return nil
	}
	rc.local.Close()
	return nil
}

// invalidateLocal removes every local key containing substr and
// returns the removed keys.
func (rc *ResponseCache) invalidateLocal(substr string) []string {
	var matched []string
	for _, key := range rc.local.Keys() {
		if strings.Contains(key, substr) {
			rc.local.Delete(key)
			matched = append(matched, key)
		}
	}
	atomic.AddInt64(&rc.stats.Invalidations, int64(len(matched)))
	return matched
}

// publish sends a sync event to peers. Failures are logged, never
// returned: peer caches self-heal through TTL expiry.
func (rc *ResponseCache) publish(ctx context.Context, event types.SyncEvent) {
	if rc.synchronizer == nil {
		return
	}
	if err := rc.synchronizer.Publish(ctx, event); err != nil {
		if rc.options.OnError != nil {
			rc.options.OnError(err)
		}
		rc.logger.Warn("failed to publish cache sync event", "action", event.Action, "error", err)
	}
}

// handleSync applies cache events received from peer instances.
func (rc *ResponseCache) handleSync(event types.SyncEvent) {
	switch event.Action {
	case types.Invalidate:
		matched := rc.invalidateLocal(event.Key)
		rc.logger.Debug("peer invalidation applied", "substring", event.Key, "keys", matched, "sender", event.Sender)

	case types.Delete:
		rc.local.Delete(event.Key)
		atomic.AddInt64(&rc.stats.Invalidations, 1)

	case types.Clear:
		rc.local.Clear()
		atomic.AddInt64(&rc.stats.Invalidations, 1)

	case types.Broadcast:
		// Admin notification traffic, handled by the notify bridge.

	default:
		rc.logger.Warn("unknown sync action", "action", event.Action, "sender", event.Sender)
	}
}
