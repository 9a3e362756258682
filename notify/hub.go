// Package notify implements the admin notification fan-out: a hub of
// connected admin sessions, domain event constructors, an outbox that
// decouples delivery from request handling, and the SSE transport.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/bookhive/bookhive/types"
)

// subscriberBuffer is the per-session channel depth. A session that
// falls this far behind starts losing events rather than blocking the
// emitter.
const subscriberBuffer = 16

// Hub is the registry of connected admin sessions (the admin room).
// Emission is fire-and-forget: it never blocks, never panics, and
// never surfaces an error to the caller.
type Hub struct {
	logger types.Logger

	mu          sync.RWMutex
	subscribers map[int64]chan types.NotificationEvent
	nextID      int64

	delivered int64
	dropped   int64
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		logger:      logger,
		subscribers: make(map[int64]chan types.NotificationEvent),
	}
}

// Subscribe joins the admin room. The returned channel receives
// subsequent events; the cancel func leaves the room and closes it.
func (h *Hub) Subscribe() (<-chan types.NotificationEvent, func()) {
	ch := make(chan types.NotificationEvent, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("admin session joined", "sessions", count)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			count := len(h.subscribers)
			h.mu.Unlock()
			close(ch)
			h.logger.Info("admin session left", "sessions", count)
		})
	}
	return ch, cancel
}

// EmitToAdmins fans an event out to every connected admin session.
// With no sessions connected it warns and no-ops.
func (h *Hub) EmitToAdmins(event types.NotificationEvent) {
	if h == nil {
		return
	}

	h.mu.RLock()
	if len(h.subscribers) == 0 {
		h.mu.RUnlock()
		h.logger.Warn("no admin sessions connected, event not delivered", "event", event.Name)
		return
	}

	count := len(h.subscribers)
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
			atomic.AddInt64(&h.delivered, 1)
		default:
			// Session buffer full; drop rather than block the emitter.
			atomic.AddInt64(&h.dropped, 1)
		}
	}
	h.mu.RUnlock()

	h.logger.Info("event emitted to admin room", "event", event.Name, "sessions", count)
}

// SubscriberCount returns the number of connected admin sessions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Stats returns delivery counters.
func (h *Hub) Stats() (delivered, dropped int64) {
	return atomic.LoadInt64(&h.delivered), atomic.LoadInt64(&h.dropped)
}

// noopLogger avoids a nil check on every log call.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
