// Package history persists the bot's outbound posts to Postgres for audit
// and tuning. The store is optional: a nil Store no-ops every method, so
// callers never branch on whether persistence is configured.
package history

import (
	"context"
	"database/sql"
	"time"

	"throp/pkg/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	text        TEXT NOT NULL,
	parent_id   TEXT NOT NULL DEFAULT '',
	confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	posted_at   TIMESTAMPTZ NOT NULL
)`

// Post is one outbound post as recorded.
type Post struct {
	ID         string
	Kind       string
	Text       string
	ParentID   string
	Confidence float64
	PostedAt   time.Time
}

type Store struct {
	db     *sql.DB
	logger logging.Logger
}

func NewStore(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the posts table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// RecordPost saves one outbound post. Failures are logged, not returned:
// posting already happened and must not be rolled back over bookkeeping.
func (s *Store) RecordPost(ctx context.Context, p Post) {
	if s == nil || s.db == nil {
		return
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, kind, text, parent_id, confidence, posted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Kind, p.Text, p.ParentID, p.Confidence, p.PostedAt)
	if err != nil {
		s.logger.WithError(err).WithField("post_id", p.ID).Warn("Failed to record post history")
	}
}

// ListRecent returns the newest posts, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, text, parent_id, confidence, posted_at
		 FROM posts ORDER BY posted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Kind, &p.Text, &p.ParentID, &p.Confidence, &p.PostedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
