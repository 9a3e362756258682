package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bookhive/bookhive/types"
	"github.com/google/uuid"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestID extracts the request ID from the context. Empty when the
// middleware is not wired.
func RequestID(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey).(string); ok {
		return s
	}
	return ""
}

// requestIDMiddleware assigns each request an ID, honoring one set by
// the client, and echoes it in the response header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", rid)

		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code
// for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingMiddleware(logger types.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		logger.Info("request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"duration", time.Since(start),
		)
	})
}

// recoverMiddleware turns handler panics into 500s with the detail
// kept in the log, not the response body.
func recoverMiddleware(logger types.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					"request_id", RequestID(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Identity headers set by the fronting auth proxy.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	// RoleAdmin gates the moderation endpoints and the admin room.
	RoleAdmin = "admin"
	// RoleUser is the default role for authenticated users.
	RoleUser = "user"
)

// identity reads the caller's user ID and role from the proxy headers.
func identity(r *http.Request) (userID, role string) {
	userID = r.Header.Get(headerUserID)
	role = r.Header.Get(headerUserRole)
	if userID != "" && role == "" {
		role = RoleUser
	}
	return userID, role
}

// requireUser writes a 401 and returns false when the request carries
// no identity.
func requireUser(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, role := identity(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return "", "", false
	}
	return userID, role, true
}

// requireAdmin writes a 401/403 and returns false unless the caller
// is an authenticated admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, role, ok := requireUser(w, r)
	if !ok {
		return "", false
	}
	if role != RoleAdmin {
		writeError(w, http.StatusForbidden, codeForbidden, "admin role required")
		return "", false
	}
	return userID, true
}
