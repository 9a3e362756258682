package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bookhive/bookhive/cache"
	"github.com/bookhive/bookhive/types"
)

// Publisher is the cross-instance leg of the outbox; the Redis
// pub/sub synchronizer satisfies it. Optional.
type Publisher interface {
	Publish(ctx context.Context, event types.SyncEvent) error
}

// OutboxConfig configures an Outbox.
type OutboxConfig struct {
	// Hub receives local deliveries. Required.
	Hub *Hub

	// Publisher bridges events to peer instances. Optional.
	Publisher Publisher

	// InstanceID stamps published events so peers can filter echoes.
	InstanceID string

	// QueueSize bounds the pending queue. Default 256.
	QueueSize int

	// MaxRetries bounds publish retries per event. Default 3.
	MaxRetries int

	// PublishTimeout bounds each publish attempt. Default 5s.
	PublishTimeout time.Duration

	// Marshaller encodes events for the peer bridge. Defaults to JSON.
	Marshaller types.Marshaller

	// Logger logs dispatch activity. Optional.
	Logger types.Logger
}

// OutboxStats are the dispatch counters.
type OutboxStats struct {
	Enqueued  int64
	Delivered int64
	Retries   int64
	Dropped   int64
}

// Outbox queues admin notification events and dispatches them from a
// worker goroutine, so broadcast failures stay off the request path
// and are observable through counters instead of silently swallowed.
type Outbox struct {
	hub            *Hub
	publisher      Publisher
	instanceID     string
	maxRetries     int
	publishTimeout time.Duration
	marshaller     types.Marshaller
	logger         types.Logger

	queue chan types.NotificationEvent
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	stats OutboxStats
}

// NewOutbox creates an Outbox and starts its dispatch worker.
func NewOutbox(cfg OutboxConfig) *Outbox {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.Marshaller == nil {
		cfg.Marshaller = cache.NewJSONMarshaller()
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	o := &Outbox{
		hub:            cfg.Hub,
		publisher:      cfg.Publisher,
		instanceID:     cfg.InstanceID,
		maxRetries:     cfg.MaxRetries,
		publishTimeout: cfg.PublishTimeout,
		marshaller:     cfg.Marshaller,
		logger:         cfg.Logger,
		queue:          make(chan types.NotificationEvent, cfg.QueueSize),
		done:           make(chan struct{}),
	}

	o.wg.Add(1)
	go o.dispatchLoop()

	return o
}

// Enqueue queues an event for dispatch. It never blocks: when the
// queue is full the event is dropped and counted.
func (o *Outbox) Enqueue(event types.NotificationEvent) {
	select {
	case o.queue <- event:
		atomic.AddInt64(&o.stats.Enqueued, 1)
	default:
		atomic.AddInt64(&o.stats.Dropped, 1)
		o.logger.Warn("outbox queue full, event dropped", "event", event.Name)
	}
}

// HandleSyncEvent re-delivers a broadcast received from a peer
// instance to the local admin room. Non-broadcast events are ignored.
func (o *Outbox) HandleSyncEvent(event types.SyncEvent) {
	if event.Action != types.Broadcast {
		return
	}

	var ne types.NotificationEvent
	if err := o.marshaller.Unmarshal(event.Value, &ne); err != nil {
		o.logger.Warn("dropping malformed peer broadcast", "sender", event.Sender, "error", err)
		return
	}
	o.hub.EmitToAdmins(ne)
}

// Stats returns the dispatch counters.
func (o *Outbox) Stats() OutboxStats {
	return OutboxStats{
		Enqueued:  atomic.LoadInt64(&o.stats.Enqueued),
		Delivered: atomic.LoadInt64(&o.stats.Delivered),
		Retries:   atomic.LoadInt64(&o.stats.Retries),
		Dropped:   atomic.LoadInt64(&o.stats.Dropped),
	}
}

// Close stops the worker after draining queued events. Safe to call
// multiple times.
func (o *Outbox) Close() {
	o.once.Do(func() {
		close(o.done)
	})
	o.wg.Wait()
}

// dispatchLoop drains the queue until Close, then drains what is left.
func (o *Outbox) dispatchLoop() {
	defer o.wg.Done()

	for {
		select {
		case event := <-o.queue:
			o.dispatch(event)
		case <-o.done:
			for {
				select {
				case event := <-o.queue:
					o.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

// dispatch delivers locally, then bridges to peers with bounded
// retries. A publish that keeps failing is counted as dropped.
func (o *Outbox) dispatch(event types.NotificationEvent) {
	o.hub.EmitToAdmins(event)
	atomic.AddInt64(&o.stats.Delivered, 1)

	if o.publisher == nil {
		return
	}

	data, err := o.marshaller.Marshal(event)
	if err != nil {
		o.logger.Error("failed to encode event for peers", "event", event.Name, "error", err)
		return
	}

	sync := types.SyncEvent{
		Sender: o.instanceID,
		Action: types.Broadcast,
		Key:    event.Name,
		Value:  data,
	}

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			atomic.AddInt64(&o.stats.Retries, 1)
			// Backoff also applies while draining after Close; retries
			// are bounded so shutdown stays bounded too.
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}

		ctx, cancel := context.WithTimeout(context.Background(), o.publishTimeout)
		err = o.publisher.Publish(ctx, sync)
		cancel()
		if err == nil {
			return
		}
		o.logger.Warn("peer publish failed", "event", event.Name, "attempt", attempt+1, "error", err)
	}

	atomic.AddInt64(&o.stats.Dropped, 1)
	o.logger.Error("peer publish abandoned", "event", event.Name, "retries", o.maxRetries, "error", err)
}
