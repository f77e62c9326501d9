package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/snapxhq/snapbot/internal/store"
)

type userStore struct {
	db *sql.DB
}

func (s *userStore) Track(ctx context.Context, chatID, displayName string, isGroup bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, display_name, is_group, message_count, first_interaction, last_interaction)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE users.display_name END,
			message_count = users.message_count + 1,
			last_interaction = excluded.last_interaction`,
		chatID, displayName, boolInt(isGroup), at.UTC(), at.UTC())
	return err
}

func (s *userStore) Get(ctx context.Context, chatID string) (store.User, error) {
	var (
		u       store.User
		isGroup int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT chat_id, display_name, is_group, message_count, first_interaction, last_interaction
		FROM users WHERE chat_id = ?`, chatID).
		Scan(&u.ChatID, &u.DisplayName, &isGroup, &u.MessageCount, &u.FirstInteraction, &u.LastInteraction)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, err
	}
	u.IsGroup = isGroup != 0
	return u, nil
}

func (s *userStore) ListGroups(ctx context.Context) ([]store.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.chat_id, u.display_name, u.last_interaction,
		       COALESCE(v.enabled, 0)
		FROM users u
		LEFT JOIN video_only_groups v ON v.group_id = u.chat_id
		WHERE u.is_group = 1
		ORDER BY u.last_interaction DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []store.Group
	for rows.Next() {
		var (
			g       store.Group
			enabled int
		)
		if err := rows.Scan(&g.GroupID, &g.DisplayName, &g.UpdatedAt, &enabled); err != nil {
			return nil, err
		}
		g.VideoOnly = enabled != 0
		if g.DisplayName == "" {
			g.DisplayName = displayFallback(g.GroupID)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// displayFallback makes a bare chat id presentable when no group name
// was ever captured.
func displayFallback(chatID string) string {
	return strings.TrimSuffix(chatID, "@g.us")
}
