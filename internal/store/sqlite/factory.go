// Package sqlite is the zero-setup storage backend. The schema is
// created on open so a fresh install needs no migration step.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snapxhq/snapbot/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    chat_id           TEXT PRIMARY KEY,
    display_name      TEXT NOT NULL DEFAULT '',
    is_group          INTEGER NOT NULL DEFAULT 0,
    message_count     INTEGER NOT NULL DEFAULT 0,
    first_interaction TIMESTAMP NOT NULL,
    last_interaction  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS shortened_links (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_chat  TEXT NOT NULL,
    link_id    TEXT NOT NULL,
    short_url  TEXT NOT NULL,
    long_url   TEXT NOT NULL,
    password   TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_links_user ON shortened_links(user_chat, created_at DESC);

CREATE TABLE IF NOT EXISTS video_only_groups (
    group_id   TEXT PRIMARY KEY,
    enabled    INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);
`

// Open opens (creating if needed) the sqlite database at path and
// returns the wired stores.
func Open(ctx context.Context, path string) (*store.Stores, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent handlers.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return store.NewStores(
		&userStore{db: db},
		&linkStore{db: db},
		&groupStore{db: db},
		db.Close,
	), nil
}
