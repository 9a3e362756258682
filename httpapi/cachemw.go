package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/bookhive/bookhive/cache"
	"github.com/bookhive/bookhive/types"
	"golang.org/x/sync/singleflight"
)

// cachedResponse is the envelope stored in the response cache.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// CacheMiddleware replays cached GET responses and coalesces
// concurrent misses for the same path, so a burst of identical
// requests produces one upstream execution.
type CacheMiddleware struct {
	cache  cache.Cache
	logger types.Logger
	group  singleflight.Group
}

// NewCacheMiddleware creates a cache middleware over the given cache.
func NewCacheMiddleware(c cache.Cache, logger types.Logger) *CacheMiddleware {
	if logger == nil {
		logger = cache.NewNoOpLogger()
	}
	return &CacheMiddleware{cache: c, logger: logger}
}

// Wrap caches GET responses of next. Non-GET requests and non-200
// responses pass through uncached. Keys are the request URI, so query
// variants cache independently.
func (cm *CacheMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cm.cache == nil || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.RequestURI()

		if data, ok := cm.cache.Get(r.Context(), key); ok {
			if replay(w, data, "HIT") {
				return
			}
			// Undecodable entry; drop just this key and fall through
			// to the handler. Sibling entries stay resident.
			_ = cm.cache.Delete(r.Context(), key)
		}

		result, err, _ := cm.group.Do(key, func() (any, error) {
			rec := newRecorder()
			next.ServeHTTP(rec, r)

			resp := cachedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}

			if resp.Status == http.StatusOK {
				data, err := json.Marshal(resp)
				if err == nil {
					if err := cm.cache.Set(r.Context(), key, data); err != nil {
						cm.logger.Warn("response cache set failed", "key", key, "error", err)
					}
				}
			}
			return resp, nil
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
			return
		}

		resp := result.(cachedResponse)
		writeRecorded(w, resp, "MISS")
	})
}

// replay writes a cached envelope back to the client.
func replay(w http.ResponseWriter, data []byte, verdict string) bool {
	var resp cachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return false
	}
	writeRecorded(w, resp, verdict)
	return true
}

func writeRecorded(w http.ResponseWriter, resp cachedResponse, verdict string) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("X-Cache", verdict)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// recorder buffers a downstream response so it can be cached and
// written to every coalesced caller.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), status: http.StatusOK}
}

func (rec *recorder) Header() http.Header {
	return rec.header
}

func (rec *recorder) WriteHeader(code int) {
	rec.status = code
}

func (rec *recorder) Write(p []byte) (int, error) {
	return rec.body.Write(p)
}
