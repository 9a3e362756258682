// Package sync propagates events between BookHive instances over
// Redis Pub/Sub. One channel carries both cache invalidations and
// admin broadcast traffic; subscribers filter by action.
package sync

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bookhive/bookhive/types"
	"github.com/redis/go-redis/v9"
)

// SyncEvent is an alias for types.SyncEvent.
type SyncEvent = types.SyncEvent

// PubSubSynchronizer implements instance synchronization using Redis
// Pub/Sub. Events published by this instance are filtered out on
// receipt by sender ID.
type PubSubSynchronizer struct {
	client         *redis.Client
	channel        string
	instanceID     string
	pubsub         *redis.PubSub
	callbacks      []func(event SyncEvent)
	callbacksMutex sync.RWMutex
	done           chan struct{}
	wg             sync.WaitGroup
}

// NewPubSubSynchronizer creates a new Pub/Sub synchronizer.
func NewPubSubSynchronizer(client *redis.Client, channel, instanceID string) *PubSubSynchronizer {
	return &PubSubSynchronizer{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		callbacks:  make([]func(event SyncEvent), 0),
		done:       make(chan struct{}),
	}
}

// Subscribe starts listening for events from peer instances.
func (ps *PubSubSynchronizer) Subscribe(ctx context.Context) error {
	ps.pubsub = ps.client.Subscribe(ctx, ps.channel)

	ps.wg.Add(1)
	go ps.listenForEvents()

	return nil
}

// Publish publishes an event to all instances.
func (ps *PubSubSynchronizer) Publish(ctx context.Context, event SyncEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return ps.client.Publish(ctx, ps.channel, string(data)).Err()
}

// OnEvent registers a callback for events received from peers.
func (ps *PubSubSynchronizer) OnEvent(callback func(event SyncEvent)) {
	ps.callbacksMutex.Lock()
	defer ps.callbacksMutex.Unlock()
	ps.callbacks = append(ps.callbacks, callback)
}

// Close closes the synchronizer.
func (ps *PubSubSynchronizer) Close() error {
	close(ps.done)
	ps.wg.Wait()

	if ps.pubsub != nil {
		return ps.pubsub.Close()
	}
	return nil
}

// listenForEvents receives events from Redis Pub/Sub and dispatches
// them to the registered callbacks.
func (ps *PubSubSynchronizer) listenForEvents() {
	defer ps.wg.Done()

	if ps.pubsub == nil {
		return
	}

	ch := ps.pubsub.Channel()

	for {
		select {
		case <-ps.done:
			return
		case msg := <-ch:
			if msg == nil {
				return
			}

			var event SyncEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}

			ps.dispatch(event)
		}
	}
}

// dispatch hands an event to every callback, skipping events this
// instance published itself.
func (ps *PubSubSynchronizer) dispatch(event SyncEvent) {
	if event.Sender == ps.instanceID {
		return
	}

	ps.callbacksMutex.RLock()
	callbacks := ps.callbacks
	ps.callbacksMutex.RUnlock()

	for _, callback := range callbacks {
		callback(event)
	}
}
