// Package types holds the shared types of the BookHive backend core:
// sync events exchanged between instances, admin notification events,
// and the domain models persisted by the store.
package types

import "time"

// Action identifies the kind of sync event published between instances.
type Action string

const (
	// Invalidate removes matching keys from peer local caches.
	Invalidate Action = "invalidate"

	// Delete removes a single key from peer local caches.
	Delete Action = "delete"

	// Clear drops the entire local cache on peers.
	Clear Action = "clear"

	// Broadcast re-delivers an admin notification event on peers.
	Broadcast Action = "broadcast"
)

// SyncEvent is the envelope published on the pub/sub channel to keep
// peer instances in step. Cache actions carry a key (or key substring
// for Invalidate); Broadcast carries a serialized NotificationEvent.
type SyncEvent struct {
	Sender string `json:"sender"`
	Action Action `json:"action"`
	Key    string `json:"key,omitempty"`
	Value  []byte `json:"value,omitempty"`
}

// Logger is the logging interface the library packages depend on.
// The server wires a zap-backed implementation; tests use no-op.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)
}

// Marshaller defines the interface for payload serialization.
type Marshaller interface {
	// Marshal serializes a value to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes a value from bytes.
	Unmarshal(data []byte, v any) error
}

// NotificationEvent is a single admin-room notification. It is
// constructed per broadcast and never persisted.
type NotificationEvent struct {
	Name      string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Admin event names emitted over the push channel.
const (
	EventBookNew           = "book:new"
	EventReportNew         = "report:new"
	EventWithdrawalUpdate  = "withdrawal_request:update"
	EventWalletTransaction = "wallet:transaction"
	EventVersionNew        = "version_notification:new"
)

// ViewAction is a user's acknowledgement of a version notification.
// Per user/notification pair the states move unseen -> viewed ->
// {dismissed, closed}; every acknowledged state suppresses display
// and there is no way back to unseen.
type ViewAction string

const (
	ActionViewed    ViewAction = "viewed"
	ActionDismissed ViewAction = "dismissed"
	ActionClosed    ViewAction = "closed"
)

// Valid reports whether a is one of the known view actions.
func (a ViewAction) Valid() bool {
	switch a {
	case ActionViewed, ActionDismissed, ActionClosed:
		return true
	}
	return false
}

// TargetAll is the wildcard role in VersionNotification.TargetUsers.
const TargetAll = "all"

// VersionNotification is a release announcement created by an admin
// and shown to each eligible user until they acknowledge it.
type VersionNotification struct {
	ID           string     `json:"id"`
	Version      string     `json:"version"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Content      string     `json:"content"`
	Type         string     `json:"type"`
	Priority     string     `json:"priority"`
	Features     []string   `json:"features"`
	BugFixes     []string   `json:"bugFixes"`
	Improvements []string   `json:"improvements"`
	TargetUsers  []string   `json:"targetUsers"`
	Active       bool       `json:"active"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	ReleasedAt   time.Time  `json:"releasedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Targets reports whether the notification is addressed to the given
// role, either explicitly or through the "all" wildcard.
func (n *VersionNotification) Targets(role string) bool {
	for _, t := range n.TargetUsers {
		if t == TargetAll || t == role {
			return true
		}
	}
	return false
}

// Expired reports whether the notification's expiry has passed at now.
func (n *VersionNotification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

// NotificationView records a user's acknowledgement of a version
// notification. At most one row exists per (UserID, NotificationID);
// repeated acknowledgements overwrite Action and ViewedAt.
type NotificationView struct {
	UserID         string     `json:"userId"`
	NotificationID string     `json:"notificationId"`
	Action         ViewAction `json:"action"`
	ViewedAt       time.Time  `json:"viewedAt"`
}

// Book is a listing offered for lending or sale.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	OwnerID   string    `json:"ownerId"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

// Report is an abuse report filed against a book or a user.
type Report struct {
	ID         string    `json:"id"`
	ReporterID string    `json:"reporterId"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}
