package sqlite

import (
	"context"
	"database/sql"
	"time"
)

type groupStore struct {
	db *sql.DB
}

func (s *groupStore) SetVideoOnly(ctx context.Context, groupID string, enabled bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_only_groups (group_id, enabled, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		groupID, boolInt(enabled), at.UTC())
	return err
}

func (s *groupStore) IsVideoOnly(ctx context.Context, groupID string) (bool, error) {
	var enabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled FROM video_only_groups WHERE group_id = ?`, groupID).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return enabled != 0, nil
}
