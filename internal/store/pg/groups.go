package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type groupStore struct {
	db *sql.DB
}

func (s *groupStore) SetVideoOnly(ctx context.Context, groupID string, enabled bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_only_groups (group_id, enabled, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at`,
		groupID, enabled, at.UTC())
	return err
}

func (s *groupStore) IsVideoOnly(ctx context.Context, groupID string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled FROM video_only_groups WHERE group_id = $1`, groupID).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return enabled, err
}
