package sqlite

import (
	"context"
	"database/sql"

	"github.com/snapxhq/snapbot/internal/store"
)

type linkStore struct {
	db *sql.DB
}

func (s *linkStore) Save(ctx context.Context, link store.Link) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shortened_links (user_chat, link_id, short_url, long_url, password, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		link.UserChat, link.LinkID, link.ShortURL, link.LongURL, link.Password, link.CreatedAt.UTC())
	return err
}

func (s *linkStore) ListByUser(ctx context.Context, userChat string, limit, offset int) ([]store.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_chat, link_id, short_url, long_url, password, created_at
		FROM shortened_links
		WHERE user_chat = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, userChat, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func (s *linkStore) ListAll(ctx context.Context, limit, offset int) ([]store.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_chat, link_id, short_url, long_url, password, created_at
		FROM shortened_links
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]store.Link, error) {
	defer rows.Close()
	var links []store.Link
	for rows.Next() {
		var l store.Link
		if err := rows.Scan(&l.ID, &l.UserChat, &l.LinkID, &l.ShortURL, &l.LongURL, &l.Password, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
