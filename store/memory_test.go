package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookhive/bookhive/types"
)

func newNotification(version string, targets ...string) *types.VersionNotification {
	if len(targets) == 0 {
		targets = []string{types.TargetAll}
	}
	return &types.VersionNotification{
		Version:     version,
		Title:       "Release " + version,
		TargetUsers: targets,
		Active:      true,
	}
}

func TestMemoryStoreNotifications(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns id and enforces version uniqueness", func(t *testing.T) {
		s := NewMemoryStore()

		n := newNotification("1.0.0")
		if err := s.CreateNotification(ctx, n); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if n.ID == "" {
			t.Fatal("Create should assign an ID")
		}

		dup := newNotification("1.0.0")
		if err := s.CreateNotification(ctx, dup); !errors.Is(err, ErrVersionExists) {
			t.Fatalf("Expected ErrVersionExists, got %v", err)
		}
	})

	t.Run("get and update", func(t *testing.T) {
		s := NewMemoryStore()

		n := newNotification("1.0.0")
		if err := s.CreateNotification(ctx, n); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		n.Title = "Renamed"
		if err := s.UpdateNotification(ctx, n); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		got, err := s.GetNotification(ctx, n.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Title != "Renamed" {
			t.Fatalf("Expected updated title, got %q", got.Title)
		}

		if err := s.UpdateNotification(ctx, newNotification("x")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list orders by release date descending", func(t *testing.T) {
		s := NewMemoryStore()

		old := newNotification("1.0.0")
		old.ReleasedAt = time.Now().Add(-time.Hour)
		recent := newNotification("2.0.0")
		recent.ReleasedAt = time.Now()

		s.CreateNotification(ctx, old)
		s.CreateNotification(ctx, recent)

		all, err := s.ListNotifications(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("Expected 2 notifications, got %d", len(all))
		}
		if all[0].Version != "2.0.0" {
			t.Fatalf("Expected newest first, got %s", all[0].Version)
		}
	})
}

func TestMemoryStoreListUnviewed(t *testing.T) {
	ctx := context.Background()

	t.Run("filters inactive, expired and mistargeted", func(t *testing.T) {
		s := NewMemoryStore()

		active := newNotification("1.0.0")
		s.CreateNotification(ctx, active)

		inactive := newNotification("1.1.0")
		inactive.Active = false
		s.CreateNotification(ctx, inactive)

		past := time.Now().Add(-time.Minute)
		expired := newNotification("1.2.0")
		expired.ExpiresAt = &past
		s.CreateNotification(ctx, expired)

		adminOnly := newNotification("1.3.0", "admin")
		s.CreateNotification(ctx, adminOnly)

		unviewed, err := s.ListUnviewed(ctx, "u1", "user")
		if err != nil {
			t.Fatalf("ListUnviewed failed: %v", err)
		}
		if len(unviewed) != 1 || unviewed[0].Version != "1.0.0" {
			t.Fatalf("Expected only the active all-targeted notification, got %+v", unviewed)
		}

		adminUnviewed, err := s.ListUnviewed(ctx, "a1", "admin")
		if err != nil {
			t.Fatalf("ListUnviewed failed: %v", err)
		}
		if len(adminUnviewed) != 2 {
			t.Fatalf("Admin should see the role-targeted one too, got %d", len(adminUnviewed))
		}
	})

	t.Run("mark viewed suppresses idempotently", func(t *testing.T) {
		s := NewMemoryStore()

		n := newNotification("1.0.0")
		s.CreateNotification(ctx, n)

		if err := s.MarkViewed(ctx, "u1", n.ID, types.ActionViewed); err != nil {
			t.Fatalf("MarkViewed failed: %v", err)
		}

		for i := 0; i < 3; i++ {
			unviewed, err := s.ListUnviewed(ctx, "u1", "user")
			if err != nil {
				t.Fatalf("ListUnviewed failed: %v", err)
			}
			if len(unviewed) != 0 {
				t.Fatalf("Viewed notification must stay suppressed, got %d", len(unviewed))
			}
			// Repeated acknowledgements must not duplicate records.
			if err := s.MarkViewed(ctx, "u1", n.ID, types.ActionDismissed); err != nil {
				t.Fatalf("Repeated MarkViewed failed: %v", err)
			}
		}

		count, err := s.CountViews(ctx, n.ID)
		if err != nil {
			t.Fatalf("CountViews failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("Expected exactly 1 view record, got %d", count)
		}
	})

	t.Run("other users keep seeing the notification", func(t *testing.T) {
		s := NewMemoryStore()

		n := newNotification("1.0.0")
		s.CreateNotification(ctx, n)
		s.MarkViewed(ctx, "u1", n.ID, types.ActionDismissed)

		unviewed, err := s.ListUnviewed(ctx, "u2", "user")
		if err != nil {
			t.Fatalf("ListUnviewed failed: %v", err)
		}
		if len(unviewed) != 1 {
			t.Fatalf("Another user should still see it, got %d", len(unviewed))
		}
	})

	t.Run("rejects unknown action and missing notification", func(t *testing.T) {
		s := NewMemoryStore()

		n := newNotification("1.0.0")
		s.CreateNotification(ctx, n)

		if err := s.MarkViewed(ctx, "u1", n.ID, "starred"); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("Expected ErrInvalidAction, got %v", err)
		}
		if err := s.MarkViewed(ctx, "u1", "missing", types.ActionViewed); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestMemoryStoreDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n := newNotification("1.0.0")
	s.CreateNotification(ctx, n)
	s.MarkViewed(ctx, "u1", n.ID, types.ActionViewed)
	s.MarkViewed(ctx, "u2", n.ID, types.ActionClosed)

	if err := s.DeleteNotification(ctx, n.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	count, err := s.CountViews(ctx, n.ID)
	if err != nil {
		t.Fatalf("CountViews failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("Delete must cascade to view records, %d remain", count)
	}

	if err := s.DeleteNotification(ctx, n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreBooksAndReports(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	b := &types.Book{Title: "Dune", Author: "Herbert", OwnerID: "u1", Price: 9.5}
	if err := s.CreateBook(ctx, b); err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}
	if b.ID == "" {
		t.Fatal("CreateBook should assign an ID")
	}

	books, err := s.ListBooks(ctx)
	if err != nil {
		t.Fatalf("ListBooks failed: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Dune" {
		t.Fatalf("Unexpected books: %+v", books)
	}

	r := &types.Report{ReporterID: "u1", TargetType: "book", TargetID: b.ID, Reason: "spam"}
	if err := s.CreateReport(ctx, r); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}

	reports, err := s.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 1 || reports[0].Reason != "spam" {
		t.Fatalf("Unexpected reports: %+v", reports)
	}
}
