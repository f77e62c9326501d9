package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/snapxhq/snapbot/internal/store"
)

func openTest(t *testing.T) *store.Stores {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUserTrack(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := st.Users.Track(ctx, "123@c.us", "Sam", false, now); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if err := st.Users.Track(ctx, "123@c.us", "", false, now.Add(time.Hour)); err != nil {
		t.Fatalf("Track again: %v", err)
	}

	u, err := st.Users.Get(ctx, "123@c.us")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if u.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", u.MessageCount)
	}
	if u.DisplayName != "Sam" {
		t.Errorf("empty display name overwrote %q", u.DisplayName)
	}
	if !u.FirstInteraction.Equal(now) {
		t.Errorf("FirstInteraction = %v, want %v", u.FirstInteraction, now)
	}
	if !u.LastInteraction.Equal(now.Add(time.Hour)) {
		t.Errorf("LastInteraction not advanced: %v", u.LastInteraction)
	}

	if _, err := st.Users.Get(ctx, "missing"); err != store.ErrNotFound {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestListGroups(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	st.Users.Track(ctx, "g1@g.us", "Family", true, now.Add(-time.Hour))
	st.Users.Track(ctx, "g2@g.us", "Work", true, now)
	st.Users.Track(ctx, "u1@c.us", "Sam", false, now)
	st.Groups.SetVideoOnly(ctx, "g1@g.us", true, now)

	groups, err := st.Users.ListGroups(ctx)
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].GroupID != "g2@g.us" {
		t.Errorf("groups not ordered by recency: %+v", groups)
	}
	if !groups[1].VideoOnly {
		t.Errorf("video-only flag not joined: %+v", groups[1])
	}
}

func TestLinks(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		err := st.Links.Save(ctx, store.Link{
			UserChat:  "u@c.us",
			LinkID:    "id" + string(rune('a'+i)),
			ShortURL:  "https://s.io/x",
			LongURL:   "https://example.com/page",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	st.Links.Save(ctx, store.Link{UserChat: "other@c.us", LinkID: "z", ShortURL: "s", LongURL: "l", Password: "pw", CreatedAt: base})

	mine, err := st.Links.ListByUser(ctx, "u@c.us", 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("got %d links, want 3", len(mine))
	}
	if mine[0].LinkID != "idc" {
		t.Errorf("links not newest-first: %+v", mine)
	}
	if mine[0].Password != "" {
		t.Errorf("unprotected link got password %q", mine[0].Password)
	}

	theirs, err := st.Links.ListByUser(ctx, "other@c.us", 10, 0)
	if err != nil || len(theirs) != 1 {
		t.Fatalf("ListByUser other: got %d links, err %v", len(theirs), err)
	}
	if theirs[0].Password != "pw" {
		t.Errorf("password not round-tripped: %+v", theirs[0])
	}

	page, err := st.Links.ListByUser(ctx, "u@c.us", 2, 2)
	if err != nil || len(page) != 1 {
		t.Fatalf("pagination: got %d links, err %v", len(page), err)
	}

	all, err := st.Links.ListAll(ctx, 10, 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("ListAll: got %d links, err %v", len(all), err)
	}
}

func TestVideoOnlyFlag(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	on, err := st.Groups.IsVideoOnly(ctx, "g@g.us")
	if err != nil || on {
		t.Fatalf("unknown group should be off, got %v, %v", on, err)
	}

	st.Groups.SetVideoOnly(ctx, "g@g.us", true, now)
	if on, _ = st.Groups.IsVideoOnly(ctx, "g@g.us"); !on {
		t.Fatal("flag not enabled")
	}
	st.Groups.SetVideoOnly(ctx, "g@g.us", false, now)
	if on, _ = st.Groups.IsVideoOnly(ctx, "g@g.us"); on {
		t.Fatal("flag not disabled")
	}
}
