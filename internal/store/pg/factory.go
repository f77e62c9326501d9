// Package pg is the postgres storage backend for managed deployments.
// Schema lives in migrations/ and is applied with the migrate command.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/snapxhq/snapbot/internal/store"
)

// Open connects to postgres with the given DSN and returns the wired
// stores. It does not apply migrations; run `snapbot migrate up` first.
func Open(ctx context.Context, dsn string) (*store.Stores, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return store.NewStores(
		&userStore{db: db},
		&linkStore{db: db},
		&groupStore{db: db},
		db.Close,
	), nil
}
