package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bookhive/bookhive/types"
)

// heartbeatInterval keeps idle SSE connections from being reaped by
// proxies between events.
const heartbeatInterval = 30 * time.Second

// SSEHandler streams admin-room events to one browser session over
// Server-Sent Events. Each connection joins the hub for its lifetime;
// there is no acknowledgement protocol.
type SSEHandler struct {
	hub    *Hub
	logger types.Logger
}

// NewSSEHandler creates an SSE handler bound to the hub.
func NewSSEHandler(hub *Hub, logger types.Logger) *SSEHandler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SSEHandler{hub: hub, logger: logger}
}

// ServeHTTP implements http.Handler.
func (s *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.hub.Subscribe()
	defer cancel()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event.Payload)
			if err != nil {
				s.logger.Error("failed to encode event payload", "event", event.Name, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
