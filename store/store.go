// Package store persists BookHive resources: version notifications
// with their per-user view records, book listings, and abuse reports.
// Two implementations exist: an in-memory store for tests and
// single-node development, and a Postgres store for deployments.
package store

import (
	"context"
	"errors"

	"github.com/bookhive/bookhive/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrVersionExists is returned when a notification with the same
// version string already exists.
var ErrVersionExists = errors.New("version already exists")

// ErrInvalidAction is returned for an unknown view action.
var ErrInvalidAction = errors.New("invalid view action")

// Store is the persistence interface of the backend core.
// All implementations must be safe for concurrent use.
type Store interface {
	// CreateNotification stores a new version notification, assigning
	// ID and CreatedAt. Version strings are unique.
	CreateNotification(ctx context.Context, n *types.VersionNotification) error

	// UpdateNotification replaces the stored notification with the
	// same ID. View records are untouched by edits.
	UpdateNotification(ctx context.Context, n *types.VersionNotification) error

	// GetNotification retrieves a notification by ID.
	GetNotification(ctx context.Context, id string) (types.VersionNotification, error)

	// ListNotifications returns all notifications, newest release first.
	ListNotifications(ctx context.Context) ([]types.VersionNotification, error)

	// ListUnviewed returns the notifications the given user should be
	// shown: active, not expired, targeting their role, and without a
	// view record from them. Ordered by release date descending.
	ListUnviewed(ctx context.Context, userID, role string) ([]types.VersionNotification, error)

	// MarkViewed upserts the user's acknowledgement of a
	// notification. Repeated calls overwrite action and timestamp;
	// a pair never has more than one record.
	MarkViewed(ctx context.Context, userID, notificationID string, action types.ViewAction) error

	// DeleteNotification removes a notification and every view record
	// referencing it.
	DeleteNotification(ctx context.Context, id string) error

	// CountViews returns the number of view records for a notification.
	CountViews(ctx context.Context, notificationID string) (int, error)

	// CreateBook stores a new book listing, assigning ID and CreatedAt.
	CreateBook(ctx context.Context, b *types.Book) error

	// ListBooks returns all book listings, newest first.
	ListBooks(ctx context.Context) ([]types.Book, error)

	// CreateReport stores a new abuse report, assigning ID and CreatedAt.
	CreateReport(ctx context.Context, r *types.Report) error

	// ListReports returns all reports, newest first.
	ListReports(ctx context.Context) ([]types.Report, error)

	// Close releases the store's resources.
	Close() error
}
