package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bookhive/bookhive/cache"
)

func newTestCache(t *testing.T, ttl time.Duration) cache.Cache {
	t.Helper()

	opts := cache.DefaultOptions()
	opts.LocalCacheConfig.TTL = ttl
	c, err := cache.New(opts)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// countingHandler answers with a body that changes on every execution,
// so a replayed response is distinguishable from a fresh one.
func countingHandler(calls *int64, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"call":` + strconv.FormatInt(n, 10) + `}`))
	})
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestCacheMiddlewareReplaysVerbatim(t *testing.T) {
	var calls int64
	h := NewCacheMiddleware(newTestCache(t, time.Minute), nil).
		Wrap(countingHandler(&calls, http.StatusOK))

	first := get(h, "/api/books")
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("Expected MISS, got %s", first.Header().Get("X-Cache"))
	}

	second := get(h, "/api/books")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("Expected HIT, got %s", second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("Replay must be byte-identical: %q vs %q", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Replay should restore the content type, got %q", ct)
	}
	if calls != 1 {
		t.Fatalf("Handler should run once, ran %d times", calls)
	}
}

func TestCacheMiddlewareKeysOnRequestURI(t *testing.T) {
	var calls int64
	h := NewCacheMiddleware(newTestCache(t, time.Minute), nil).
		Wrap(countingHandler(&calls, http.StatusOK))

	get(h, "/api/books")
	get(h, "/api/books?author=herbert")

	if calls != 2 {
		t.Fatalf("Query variants must cache independently, handler ran %d times", calls)
	}
	if w := get(h, "/api/books?author=herbert"); w.Header().Get("X-Cache") != "HIT" {
		t.Fatal("Repeated query variant should hit")
	}
}

func TestCacheMiddlewareSkipsNonGET(t *testing.T) {
	var calls int64
	h := NewCacheMiddleware(newTestCache(t, time.Minute), nil).
		Wrap(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("POST", "/api/books", nil))
		if w.Header().Get("X-Cache") != "" {
			t.Fatal("Non-GET responses must not carry a cache verdict")
		}
	}
	if calls != 2 {
		t.Fatalf("Non-GET must always reach the handler, ran %d times", calls)
	}
}

func TestCacheMiddlewareSkipsNon200(t *testing.T) {
	var calls int64
	h := NewCacheMiddleware(newTestCache(t, time.Minute), nil).
		Wrap(countingHandler(&calls, http.StatusNotFound))

	get(h, "/api/books/missing")
	w := get(h, "/api/books/missing")
	if w.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("Error responses must not be cached, got %s", w.Header().Get("X-Cache"))
	}
	if calls != 2 {
		t.Fatalf("Handler should run for every error response, ran %d times", calls)
	}
}

func TestCacheMiddlewareEntriesExpire(t *testing.T) {
	var calls int64
	h := NewCacheMiddleware(newTestCache(t, 50*time.Millisecond), nil).
		Wrap(countingHandler(&calls, http.StatusOK))

	get(h, "/api/books")
	if w := get(h, "/api/books"); w.Header().Get("X-Cache") != "HIT" {
		t.Fatal("Expected HIT before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if w := get(h, "/api/books"); w.Header().Get("X-Cache") != "MISS" {
		t.Fatal("Expected MISS after TTL expiry")
	}
	if calls != 2 {
		t.Fatalf("Handler should recompute after expiry, ran %d times", calls)
	}
}

func TestCacheMiddlewareDropsUndecodableEntries(t *testing.T) {
	c := newTestCache(t, time.Minute)
	var calls int64
	h := NewCacheMiddleware(c, nil).Wrap(countingHandler(&calls, http.StatusOK))

	// Prime a healthy sibling entry whose key contains the corrupt one.
	get(h, "/api/books?page=2")

	// A corrupt entry is replaced by a fresh execution instead of a 500.
	if err := c.Set(context.Background(), "/api/books", []byte("garbage")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	w := get(h, "/api/books")
	if w.Code != http.StatusOK || w.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("Corrupt entry should fall through, got %d %s", w.Code, w.Header().Get("X-Cache"))
	}
	if calls != 2 {
		t.Fatalf("Handler should have recomputed once, ran %d times", calls)
	}

	// Recovery drops only the corrupt key, not its siblings.
	if w := get(h, "/api/books?page=2"); w.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("Sibling entry should survive the recovery, got %s", w.Header().Get("X-Cache"))
	}
}

func TestCacheMiddlewareNilCachePassesThrough(t *testing.T) {
	var calls int64
	h := NewCacheMiddleware(nil, nil).Wrap(countingHandler(&calls, http.StatusOK))

	get(h, "/api/books")
	get(h, "/api/books")
	if calls != 2 {
		t.Fatalf("Without a cache every request reaches the handler, ran %d times", calls)
	}
}
