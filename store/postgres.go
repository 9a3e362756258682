package store

import (
	"context"
	"errors"
	"time"

	"github.com/bookhive/bookhive/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const schema = `
CREATE TABLE IF NOT EXISTS version_notifications (
	id           TEXT PRIMARY KEY,
	version      TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL DEFAULT 'release',
	priority     TEXT NOT NULL DEFAULT 'normal',
	features     TEXT[] NOT NULL DEFAULT '{}',
	bug_fixes    TEXT[] NOT NULL DEFAULT '{}',
	improvements TEXT[] NOT NULL DEFAULT '{}',
	target_users TEXT[] NOT NULL DEFAULT '{all}',
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	expires_at   TIMESTAMPTZ,
	released_at  TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notification_views (
	user_id         TEXT NOT NULL,
	notification_id TEXT NOT NULL REFERENCES version_notifications(id) ON DELETE CASCADE,
	action          TEXT NOT NULL,
	viewed_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, notification_id)
);

CREATE TABLE IF NOT EXISTS books (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	author     TEXT NOT NULL,
	owner_id   TEXT NOT NULL,
	price      DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	reporter_id TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const notificationColumns = `id, version, title, description, content, type, priority,
	features, bug_fixes, improvements, target_users, active, expires_at, released_at, created_at`

// PostgresStore implements Store on Postgres through pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database, verifies the connection,
// and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateNotification stores a new version notification.
func (p *PostgresStore) CreateNotification(ctx context.Context, n *types.VersionNotification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	if n.ReleasedAt.IsZero() {
		n.ReleasedAt = n.CreatedAt
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO version_notifications
			(id, version, title, description, content, type, priority,
			 features, bug_fixes, improvements, target_users, active, expires_at, released_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		n.ID, n.Version, n.Title, n.Description, n.Content, n.Type, n.Priority,
		n.Features, n.BugFixes, n.Improvements, n.TargetUsers, n.Active, n.ExpiresAt, n.ReleasedAt, n.CreatedAt,
	)
	if isPgCode(err, pgUniqueViolation) {
		return ErrVersionExists
	}
	return err
}

// UpdateNotification replaces a stored notification.
func (p *PostgresStore) UpdateNotification(ctx context.Context, n *types.VersionNotification) error {
	res, err := p.pool.Exec(ctx,
		`UPDATE version_notifications SET
			version = $2, title = $3, description = $4, content = $5, type = $6,
			priority = $7, features = $8, bug_fixes = $9, improvements = $10,
			target_users = $11, active = $12, expires_at = $13, released_at = $14
		 WHERE id = $1`,
		n.ID, n.Version, n.Title, n.Description, n.Content, n.Type,
		n.Priority, n.Features, n.BugFixes, n.Improvements,
		n.TargetUsers, n.Active, n.ExpiresAt, n.ReleasedAt,
	)
	if isPgCode(err, pgUniqueViolation) {
		return ErrVersionExists
	}
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetNotification retrieves a notification by ID.
func (p *PostgresStore) GetNotification(ctx context.Context, id string) (types.VersionNotification, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM version_notifications WHERE id = $1`, id)
	return scanNotification(row)
}

// ListNotifications returns all notifications, newest release first.
func (p *PostgresStore) ListNotifications(ctx context.Context) ([]types.VersionNotification, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM version_notifications ORDER BY released_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ListUnviewed returns the notifications the user should be shown.
func (p *PostgresStore) ListUnviewed(ctx context.Context, userID, role string) ([]types.VersionNotification, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+notificationColumns+`
		 FROM version_notifications n
		 WHERE n.active
		   AND (n.expires_at IS NULL OR n.expires_at > now())
		   AND (n.target_users @> ARRAY[$2] OR n.target_users @> ARRAY['all'])
		   AND NOT EXISTS (
			SELECT 1 FROM notification_views v
			WHERE v.notification_id = n.id AND v.user_id = $1
		   )
		 ORDER BY n.released_at DESC`,
		userID, role,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// MarkViewed upserts a view record for the (user, notification) pair.
func (p *PostgresStore) MarkViewed(ctx context.Context, userID, notificationID string, action types.ViewAction) error {
	if !action.Valid() {
		return ErrInvalidAction
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO notification_views (user_id, notification_id, action, viewed_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, notification_id)
		 DO UPDATE SET action = EXCLUDED.action, viewed_at = EXCLUDED.viewed_at`,
		userID, notificationID, string(action),
	)
	if isPgCode(err, pgForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}

// DeleteNotification removes a notification and its view records in
// one transaction, so no orphaned view rows survive a partial failure.
func (p *PostgresStore) DeleteNotification(ctx context.Context, id string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM notification_views WHERE notification_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.Exec(ctx,
		`DELETE FROM version_notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// CountViews returns the number of view records for a notification.
func (p *PostgresStore) CountViews(ctx context.Context, notificationID string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM notification_views WHERE notification_id = $1`,
		notificationID,
	).Scan(&count)
	return count, err
}

// CreateBook stores a new book listing.
func (p *PostgresStore) CreateBook(ctx context.Context, b *types.Book) error {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO books (id, title, author, owner_id, price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.Title, b.Author, b.OwnerID, b.Price, b.CreatedAt,
	)
	return err
}

// ListBooks returns all book listings, newest first.
func (p *PostgresStore) ListBooks(ctx context.Context) ([]types.Book, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, title, author, owner_id, price, created_at
		 FROM books ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []types.Book
	for rows.Next() {
		var b types.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.OwnerID, &b.Price, &b.CreatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// CreateReport stores a new abuse report.
func (p *PostgresStore) CreateReport(ctx context.Context, r *types.Report) error {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO reports (id, reporter_id, target_type, target_id, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.ReporterID, r.TargetType, r.TargetID, r.Reason, r.CreatedAt,
	)
	return err
}

// ListReports returns all reports, newest first.
func (p *PostgresStore) ListReports(ctx context.Context) ([]types.Report, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, reporter_id, target_type, target_id, reason, created_at
		 FROM reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []types.Report
	for rows.Next() {
		var r types.Report
		if err := rows.Scan(&r.ID, &r.ReporterID, &r.TargetType, &r.TargetID, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func scanNotification(row pgx.Row) (types.VersionNotification, error) {
	var n types.VersionNotification
	err := row.Scan(
		&n.ID, &n.Version, &n.Title, &n.Description, &n.Content, &n.Type, &n.Priority,
		&n.Features, &n.BugFixes, &n.Improvements, &n.TargetUsers, &n.Active,
		&n.ExpiresAt, &n.ReleasedAt, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.VersionNotification{}, ErrNotFound
	}
	return n, err
}

func scanNotifications(rows pgx.Rows) ([]types.VersionNotification, error) {
	var out []types.VersionNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
