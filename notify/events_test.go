package notify

import (
	"testing"
	"time"

	"github.com/bookhive/bookhive/types"
)

func TestBroadcasterWithoutOutbox(t *testing.T) {
	b := NewBroadcaster(nil, nil)

	// Must be a no-op, never a panic.
	b.BookAdded(types.Book{ID: "b1"})
	b.ReportFiled(types.Report{ID: "r1"})
	b.VersionReleased(types.VersionNotification{ID: "n1"})
	b.WithdrawalUpdated("w1", "u1", "approved", 25)
	b.WalletTransaction("u1", "credit", 10)
}

func TestBroadcasterOnNil(t *testing.T) {
	var b *Broadcaster
	b.BookAdded(types.Book{ID: "b1"})
}

func TestBroadcasterPayloads(t *testing.T) {
	hub := NewHub(nil)
	events, cancel := hub.Subscribe()
	defer cancel()

	outbox := NewOutbox(OutboxConfig{Hub: hub, InstanceID: "i-1"})
	defer outbox.Close()
	b := NewBroadcaster(outbox, nil)

	b.BookAdded(types.Book{ID: "b1", Title: "Dune", Author: "Herbert", OwnerID: "u1", Price: 9.5})

	select {
	case event := <-events:
		if event.Name != types.EventBookNew {
			t.Fatalf("Unexpected event name: %s", event.Name)
		}
		if event.Payload["bookId"] != "b1" || event.Payload["title"] != "Dune" {
			t.Fatalf("Unexpected payload: %v", event.Payload)
		}
		if _, ok := event.Payload["timestamp"]; !ok {
			t.Fatal("Payload should carry a timestamp")
		}
		if event.Timestamp.IsZero() {
			t.Fatal("Event should be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}

	b.WithdrawalUpdated("w1", "u1", "approved", 42)
	select {
	case event := <-events:
		if event.Name != types.EventWithdrawalUpdate {
			t.Fatalf("Unexpected event name: %s", event.Name)
		}
		if event.Payload["status"] != "approved" {
			t.Fatalf("Unexpected payload: %v", event.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
}
