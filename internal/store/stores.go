// Package store defines persistence interfaces and the record types they
// exchange. Two backends exist: sqlite for zero-setup single-node runs
// and postgres for managed deployments.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("store: not found")

// User is one chat participant the bot has seen.
type User struct {
	ChatID           string
	DisplayName      string
	IsGroup          bool
	MessageCount     int64
	FirstInteraction time.Time
	LastInteraction  time.Time
}

// Link is one shortened URL owned by a user.
type Link struct {
	ID        int64
	UserChat  string
	LinkID    string // shortener's id, used for stats lookups
	ShortURL  string
	LongURL   string
	Password  string // empty when the link is not protected
	CreatedAt time.Time
}

// Group is a group chat with its video-only flag.
type Group struct {
	GroupID     string
	DisplayName string
	VideoOnly   bool
	UpdatedAt   time.Time
}

// UserStore records who talks to the bot.
type UserStore interface {
	// Track upserts the user and bumps its message count.
	Track(ctx context.Context, chatID, displayName string, isGroup bool, at time.Time) error
	Get(ctx context.Context, chatID string) (User, error)
	// ListGroups returns known group chats, most recently active first.
	ListGroups(ctx context.Context) ([]Group, error)
}

// LinkStore records shortened links.
type LinkStore interface {
	Save(ctx context.Context, link Link) error
	ListByUser(ctx context.Context, userChat string, limit, offset int) ([]Link, error)
	ListAll(ctx context.Context, limit, offset int) ([]Link, error)
}

// GroupStore holds the video-only flags.
type GroupStore interface {
	SetVideoOnly(ctx context.Context, groupID string, enabled bool, at time.Time) error
	IsVideoOnly(ctx context.Context, groupID string) (bool, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	Users  UserStore
	Links  LinkStore
	Groups GroupStore

	closer func() error
}

// NewStores wires a backend's stores with its close hook.
func NewStores(users UserStore, links LinkStore, groups GroupStore, closer func() error) *Stores {
	return &Stores{Users: users, Links: links, Groups: groups, closer: closer}
}

func (s *Stores) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
