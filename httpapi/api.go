package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bookhive/bookhive/cache"
	"github.com/bookhive/bookhive/notify"
	"github.com/bookhive/bookhive/store"
	"github.com/bookhive/bookhive/types"
)

// API bundles the handlers of the BookHive backend core.
type API struct {
	store   store.Store
	cache   cache.Cache
	events  *notify.Broadcaster
	hub     *notify.Hub
	logger  types.Logger
	version string
}

// Config wires an API instance.
type Config struct {
	Store       store.Store
	Cache       cache.Cache
	Broadcaster *notify.Broadcaster
	Hub         *notify.Hub
	Logger      types.Logger

	// Version is reported by the health endpoint.
	Version string
}

// New creates an API.
func New(cfg Config) *API {
	if cfg.Logger == nil {
		cfg.Logger = cache.NewNoOpLogger()
	}
	return &API{
		store:   cfg.Store,
		cache:   cfg.Cache,
		events:  cfg.Broadcaster,
		hub:     cfg.Hub,
		logger:  cfg.Logger,
		version: cfg.Version,
	}
}

// Routes builds the handler tree with the middleware chain. The
// response cache wraps only the public read endpoints; per-user and
// admin reads are always computed fresh.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	cacheMW := NewCacheMiddleware(a.cache, a.logger)

	mux.HandleFunc("GET /health", a.healthHandler)

	mux.Handle("GET /api/books", cacheMW.Wrap(http.HandlerFunc(a.listBooksHandler)))
	mux.HandleFunc("POST /api/books", a.createBookHandler)

	mux.HandleFunc("POST /api/reports", a.createReportHandler)
	mux.HandleFunc("GET /api/reports", a.listReportsHandler)

	mux.HandleFunc("GET /api/notifications/versions", a.listNotificationsHandler)
	mux.HandleFunc("POST /api/notifications/versions", a.createNotificationHandler)
	mux.HandleFunc("PUT /api/notifications/versions/{id}", a.updateNotificationHandler)
	mux.HandleFunc("DELETE /api/notifications/versions/{id}", a.deleteNotificationHandler)
	mux.HandleFunc("GET /api/notifications/versions/unviewed", a.unviewedHandler)
	mux.HandleFunc("POST /api/notifications/versions/{id}/viewed", a.markViewedHandler)

	mux.HandleFunc("GET /api/admin/events", a.adminEventsHandler)
	mux.HandleFunc("GET /api/admin/cache/stats", a.cacheStatsHandler)

	var h http.Handler = mux
	h = loggingMiddleware(a.logger, h)
	h = requestIDMiddleware(h)
	h = recoverMiddleware(a.logger, h)
	return h
}

func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": a.version,
	})
}

func (a *API) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	books, err := a.store.ListBooks(r.Context())
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if books == nil {
		books = []types.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (a *API) createBookHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title  string  `json:"title"`
		Author string  `json:"author"`
		Price  float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid json body")
		return
	}

	fields := map[string]string{}
	if payload.Title == "" {
		fields["title"] = "title is required"
	}
	if payload.Author == "" {
		fields["author"] = "author is required"
	}
	if payload.Price < 0 {
		fields["price"] = "price cannot be negative"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	book := types.Book{
		Title:   payload.Title,
		Author:  payload.Author,
		OwnerID: userID,
		Price:   payload.Price,
	}
	if err := a.store.CreateBook(r.Context(), &book); err != nil {
		a.serverError(w, r, err)
		return
	}

	a.events.BookAdded(book)
	a.invalidate(r, "/api/books")

	writeJSON(w, http.StatusCreated, book)
}

func (a *API) createReportHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		TargetType string `json:"targetType"`
		TargetID   string `json:"targetId"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid json body")
		return
	}

	fields := map[string]string{}
	if payload.TargetType == "" {
		fields["targetType"] = "targetType is required"
	}
	if payload.TargetID == "" {
		fields["targetId"] = "targetId is required"
	}
	if payload.Reason == "" {
		fields["reason"] = "reason is required"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	report := types.Report{
		ReporterID: userID,
		TargetType: payload.TargetType,
		TargetID:   payload.TargetID,
		Reason:     payload.Reason,
	}
	if err := a.store.CreateReport(r.Context(), &report); err != nil {
		a.serverError(w, r, err)
		return
	}

	a.events.ReportFiled(report)

	writeJSON(w, http.StatusCreated, report)
}

func (a *API) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	reports, err := a.store.ListReports(r.Context())
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if reports == nil {
		reports = []types.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (a *API) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	notifications, err := a.store.ListNotifications(r.Context())
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []types.VersionNotification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// notificationPayload is the admin create/update body.
type notificationPayload struct {
	Version      string   `json:"version"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	Type         string   `json:"type"`
	Priority     string   `json:"priority"`
	Features     []string `json:"features"`
	BugFixes     []string `json:"bugFixes"`
	Improvements []string `json:"improvements"`
	TargetUsers  []string `json:"targetUsers"`
	Active       *bool    `json:"active"`
	ExpiresAt    *string  `json:"expiresAt"`
}

func (p *notificationPayload) validate() map[string]string {
	fields := map[string]string{}
	if p.Version == "" {
		fields["version"] = "version is required"
	}
	if p.Title == "" {
		fields["title"] = "title is required"
	}
	return fields
}

func (p *notificationPayload) apply(n *types.VersionNotification) {
	n.Version = p.Version
	n.Title = p.Title
	n.Description = p.Description
	n.Content = p.Content
	n.Type = p.Type
	if n.Type == "" {
		n.Type = "release"
	}
	n.Priority = p.Priority
	if n.Priority == "" {
		n.Priority = "normal"
	}
	n.Features = p.Features
	n.BugFixes = p.BugFixes
	n.Improvements = p.Improvements
	n.TargetUsers = p.TargetUsers
	if len(n.TargetUsers) == 0 {
		n.TargetUsers = []string{types.TargetAll}
	}
	n.Active = true
	if p.Active != nil {
		n.Active = *p.Active
	}
}

func (a *API) createNotificationHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	var payload notificationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid json body")
		return
	}
	if fields := payload.validate(); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	var n types.VersionNotification
	payload.apply(&n)
	if payload.ExpiresAt != nil {
		t, err := parseTime(*payload.ExpiresAt)
		if err != nil {
			writeValidationError(w, map[string]string{"expiresAt": "must be RFC 3339"})
			return
		}
		n.ExpiresAt = &t
	}

	if err := a.store.CreateNotification(r.Context(), &n); err != nil {
		if errors.Is(err, store.ErrVersionExists) {
			writeError(w, http.StatusConflict, codeConflict, "a notification for this version already exists")
			return
		}
		a.serverError(w, r, err)
		return
	}

	a.events.VersionReleased(n)
	a.invalidate(r, "/api/notifications")

	writeJSON(w, http.StatusCreated, n)
}

func (a *API) updateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	n, err := a.store.GetNotification(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "notification not found")
			return
		}
		a.serverError(w, r, err)
		return
	}

	var payload notificationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid json body")
		return
	}
	if fields := payload.validate(); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	payload.apply(&n)
	n.ExpiresAt = nil
	if payload.ExpiresAt != nil {
		t, err := parseTime(*payload.ExpiresAt)
		if err != nil {
			writeValidationError(w, map[string]string{"expiresAt": "must be RFC 3339"})
			return
		}
		n.ExpiresAt = &t
	}

	if err := a.store.UpdateNotification(r.Context(), &n); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, codeNotFound, "notification not found")
		case errors.Is(err, store.ErrVersionExists):
			writeError(w, http.StatusConflict, codeConflict, "a notification for this version already exists")
		default:
			a.serverError(w, r, err)
		}
		return
	}

	a.invalidate(r, "/api/notifications")
	writeJSON(w, http.StatusOK, n)
}

func (a *API) deleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	if err := a.store.DeleteNotification(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "notification not found")
			return
		}
		a.serverError(w, r, err)
		return
	}

	a.invalidate(r, "/api/notifications")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) unviewedHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requireUser(w, r)
	if !ok {
		return
	}

	notifications, err := a.store.ListUnviewed(r.Context(), userID, role)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []types.VersionNotification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (a *API) markViewedHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Action types.ViewAction `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid json body")
		return
	}
	if payload.Action == "" {
		payload.Action = types.ActionViewed
	}
	if !payload.Action.Valid() {
		writeValidationError(w, map[string]string{"action": "must be viewed, dismissed, or closed"})
		return
	}

	err := a.store.MarkViewed(r.Context(), userID, r.PathValue("id"), payload.Action)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "notification not found")
			return
		}
		a.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) adminEventsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	notify.NewSSEHandler(a.hub, a.logger).ServeHTTP(w, r)
}

func (a *API) cacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if a.cache == nil {
		writeJSON(w, http.StatusOK, cache.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, a.cache.Stats())
}

// invalidate drops cached responses whose key contains substr.
// Failures are logged and never fail the mutating request.
func (a *API) invalidate(r *http.Request, substr string) {
	if a.cache == nil {
		return
	}
	if _, err := a.cache.Invalidate(r.Context(), substr); err != nil {
		a.logger.Warn("cache invalidation failed",
			"request_id", RequestID(r.Context()),
			"substring", substr,
			"error", err,
		)
	}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// serverError logs the cause and answers with a generic 500.
func (a *API) serverError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("request failed",
		"request_id", RequestID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
}
