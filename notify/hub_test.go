package notify

import (
	"testing"
	"time"

	"github.com/bookhive/bookhive/types"
)

func TestHubEmitWithNoSubscribers(t *testing.T) {
	hub := NewHub(nil)

	// Must not panic or block.
	hub.EmitToAdmins(types.NotificationEvent{Name: types.EventBookNew})

	if delivered, _ := hub.Stats(); delivered != 0 {
		t.Fatalf("Expected no deliveries, got %d", delivered)
	}
}

func TestHubEmitOnNil(t *testing.T) {
	var hub *Hub
	hub.EmitToAdmins(types.NotificationEvent{Name: types.EventBookNew})
}

func TestHubSubscribeAndEmit(t *testing.T) {
	hub := NewHub(nil)

	events, cancel := hub.Subscribe()
	defer cancel()

	if hub.SubscriberCount() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	hub.EmitToAdmins(types.NotificationEvent{
		Name:    types.EventReportNew,
		Payload: map[string]any{"reportId": "r1"},
	})

	select {
	case event := <-events:
		if event.Name != types.EventReportNew {
			t.Fatalf("Unexpected event: %s", event.Name)
		}
		if event.Payload["reportId"] != "r1" {
			t.Fatalf("Unexpected payload: %v", event.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

func TestHubFanOutReachesAllSessions(t *testing.T) {
	hub := NewHub(nil)

	first, cancelFirst := hub.Subscribe()
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe()
	defer cancelSecond()

	hub.EmitToAdmins(types.NotificationEvent{Name: types.EventVersionNew})

	for _, ch := range []<-chan types.NotificationEvent{first, second} {
		select {
		case event := <-ch:
			if event.Name != types.EventVersionNew {
				t.Fatalf("Unexpected event: %s", event.Name)
			}
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for fan-out")
		}
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(nil)

	_, cancel := hub.Subscribe()
	cancel()
	cancel() // safe to call twice

	if hub.SubscriberCount() != 0 {
		t.Fatalf("Expected 0 subscribers, got %d", hub.SubscriberCount())
	}
}

func TestHubDropsWhenSessionIsFull(t *testing.T) {
	hub := NewHub(nil)

	_, cancel := hub.Subscribe()
	defer cancel()

	// Never drained, so the buffer fills and further events drop.
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.EmitToAdmins(types.NotificationEvent{Name: types.EventBookNew})
	}

	delivered, dropped := hub.Stats()
	if delivered != subscriberBuffer {
		t.Fatalf("Expected %d deliveries, got %d", subscriberBuffer, delivered)
	}
	if dropped != 5 {
		t.Fatalf("Expected 5 drops, got %d", dropped)
	}
}
