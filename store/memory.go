package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bookhive/bookhive/types"
	"github.com/google/uuid"
)

// MemoryStore implements Store with in-process maps.
// Used by tests and by deployments running without a database.
type MemoryStore struct {
	mu            sync.RWMutex
	notifications map[string]types.VersionNotification
	// views is keyed notification ID -> user ID, which makes the
	// cascade on delete a single map removal.
	views   map[string]map[string]types.NotificationView
	books   []types.Book
	reports []types.Report
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notifications: make(map[string]types.VersionNotification),
		views:         make(map[string]map[string]types.NotificationView),
	}
}

// CreateNotification stores a new version notification.
func (m *MemoryStore) CreateNotification(ctx context.Context, n *types.VersionNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.notifications {
		if existing.Version == n.Version {
			return ErrVersionExists
		}
	}

	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	if n.ReleasedAt.IsZero() {
		n.ReleasedAt = n.CreatedAt
	}
	m.notifications[n.ID] = *n
	return nil
}

// UpdateNotification replaces a stored notification.
func (m *MemoryStore) UpdateNotification(ctx context.Context, n *types.VersionNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.notifications[n.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.notifications {
		if id != n.ID && other.Version == n.Version {
			return ErrVersionExists
		}
	}

	n.CreatedAt = existing.CreatedAt
	m.notifications[n.ID] = *n
	return nil
}

// GetNotification retrieves a notification by ID.
func (m *MemoryStore) GetNotification(ctx context.Context, id string) (types.VersionNotification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.notifications[id]
	if !ok {
		return types.VersionNotification{}, ErrNotFound
	}
	return n, nil
}

// ListNotifications returns all notifications, newest release first.
func (m *MemoryStore) ListNotifications(ctx context.Context) ([]types.VersionNotification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.VersionNotification, 0, len(m.notifications))
	for _, n := range m.notifications {
		out = append(out, n)
	}
	sortByRelease(out)
	return out, nil
}

// ListUnviewed returns the notifications the user should be shown.
func (m *MemoryStore) ListUnviewed(ctx context.Context, userID, role string) ([]types.VersionNotification, error) {
	now := time.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.VersionNotification
	for _, n := range m.notifications {
		if !n.Active || n.Expired(now) || !n.Targets(role) {
			continue
		}
		if _, viewed := m.views[n.ID][userID]; viewed {
			continue
		}
		out = append(out, n)
	}
	sortByRelease(out)
	return out, nil
}

// MarkViewed upserts a view record for the (user, notification) pair.
func (m *MemoryStore) MarkViewed(ctx context.Context, userID, notificationID string, action types.ViewAction) error {
	if !action.Valid() {
		return ErrInvalidAction
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notifications[notificationID]; !ok {
		return ErrNotFound
	}

	byUser, ok := m.views[notificationID]
	if !ok {
		byUser = make(map[string]types.NotificationView)
		m.views[notificationID] = byUser
	}
	byUser[userID] = types.NotificationView{
		UserID:         userID,
		NotificationID: notificationID,
		Action:         action,
		ViewedAt:       time.Now().UTC(),
	}
	return nil
}

// DeleteNotification removes a notification and its view records.
func (m *MemoryStore) DeleteNotification(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notifications[id]; !ok {
		return ErrNotFound
	}
	delete(m.notifications, id)
	delete(m.views, id)
	return nil
}

// CountViews returns the number of view records for a notification.
func (m *MemoryStore) CountViews(ctx context.Context, notificationID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views[notificationID]), nil
}

// CreateBook stores a new book listing.
func (m *MemoryStore) CreateBook(ctx context.Context, b *types.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	m.books = append(m.books, *b)
	return nil
}

// ListBooks returns all book listings, newest first.
func (m *MemoryStore) ListBooks(ctx context.Context) ([]types.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Book, len(m.books))
	copy(out, m.books)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CreateReport stores a new abuse report.
func (m *MemoryStore) CreateReport(ctx context.Context, r *types.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	m.reports = append(m.reports, *r)
	return nil
}

// ListReports returns all reports, newest first.
func (m *MemoryStore) ListReports(ctx context.Context) ([]types.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Report, len(m.reports))
	copy(out, m.reports)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

func sortByRelease(ns []types.VersionNotification) {
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].ReleasedAt.After(ns[j].ReleasedAt)
	})
}
