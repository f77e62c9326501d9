package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/snapxhq/snapbot/internal/store"
)

type userStore struct {
	db *sql.DB
}

func (s *userStore) Track(ctx context.Context, chatID, displayName string, isGroup bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, display_name, is_group, message_count, first_interaction, last_interaction)
		VALUES ($1, $2, $3, 1, $4, $4)
		ON CONFLICT (chat_id) DO UPDATE SET
			display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE users.display_name END,
			message_count = users.message_count + 1,
			last_interaction = EXCLUDED.last_interaction`,
		chatID, displayName, isGroup, at.UTC())
	return err
}

func (s *userStore) Get(ctx context.Context, chatID string) (store.User, error) {
	var u store.User
	err := s.db.QueryRowContext(ctx, `
		SELECT chat_id, display_name, is_group, message_count, first_interaction, last_interaction
		FROM users WHERE chat_id = $1`, chatID).
		Scan(&u.ChatID, &u.DisplayName, &u.IsGroup, &u.MessageCount, &u.FirstInteraction, &u.LastInteraction)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	return u, err
}

func (s *userStore) ListGroups(ctx context.Context) ([]store.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.chat_id, u.display_name, u.last_interaction,
		       COALESCE(v.enabled, FALSE)
		FROM users u
		LEFT JOIN video_only_groups v ON v.group_id = u.chat_id
		WHERE u.is_group
		ORDER BY u.last_interaction DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []store.Group
	for rows.Next() {
		var g store.Group
		if err := rows.Scan(&g.GroupID, &g.DisplayName, &g.UpdatedAt, &g.VideoOnly); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
