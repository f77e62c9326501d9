package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryDo(t *testing.T) {
	t.Run("transient errors retried", func(t *testing.T) {
		calls := 0
		got, err := RetryDo(context.Background(), fastRetry(), func() (int, error) {
			calls++
			if calls < 3 {
				return 0, Transient(errors.New("flaky"))
			}
			return 42, nil
		})
		if err != nil || got != 42 || calls != 3 {
			t.Errorf("got %d, err %v after %d calls", got, err, calls)
		}
	})

	t.Run("permanent errors fail fast", func(t *testing.T) {
		calls := 0
		_, err := RetryDo(context.Background(), fastRetry(), func() (int, error) {
			calls++
			return 0, errors.New("bad request")
		})
		if err == nil || calls != 1 {
			t.Errorf("err %v after %d calls, want 1 call", err, calls)
		}
	})

	t.Run("exhaustion returns last error", func(t *testing.T) {
		_, err := RetryDo(context.Background(), fastRetry(), func() (int, error) {
			return 0, Transient(errors.New("always down"))
		})
		if err == nil || !strings.Contains(err.Error(), "always down") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("context cancel stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
		_, err := RetryDo(ctx, cfg, func() (int, error) {
			return 0, Transient(errors.New("down"))
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestChatClientSend(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"reply":"hello there","chatid":"thread-7"}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, WithChatRetry(fastRetry()))
	reply, err := c.Send(context.Background(), "thread-6", "hi bot")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Text != "hello there" || reply.Token != "thread-7" {
		t.Errorf("reply = %+v", reply)
	}
	if !strings.Contains(gotQuery, "chatid=thread-6") || !strings.Contains(gotQuery, "message=hi+bot") {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestChatClientAltFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"alt text","chat_id":"t1"}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, WithChatRetry(fastRetry()))
	reply, err := c.Send(context.Background(), "", "hi")
	if err != nil || reply.Text != "alt text" || reply.Token != "t1" {
		t.Errorf("reply = %+v, err %v", reply, err)
	}
}

func TestChatClientRetriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, WithChatRetry(fastRetry()))
	reply, err := c.Send(context.Background(), "", "hi")
	if err != nil || reply.Text != "ok" || calls != 2 {
		t.Errorf("reply %+v, err %v, calls %d", reply, err, calls)
	}
}

func TestVideoClientResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://social.example/v/1" {
			t.Errorf("url param = %q", got)
		}
		w.Write([]byte(`{"success":true,"mediaInfo":{"videoUrl":"https://cdn.example/v.mp4","title":"clip"}}`))
	}))
	defer srv.Close()

	c := NewVideoClient(srv.URL)
	m, err := c.Resolve(context.Background(), "https://social.example/v/1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.URL != "https://cdn.example/v.mp4" || m.Title != "clip" {
		t.Errorf("media = %+v", m)
	}
}

func TestVideoClientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := NewVideoClient(srv.URL)
	if _, err := c.Resolve(context.Background(), "https://x"); err == nil {
		t.Fatal("expected error for unresolvable video")
	}
}

func TestShortenerShorten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/url/add" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key123" {
			t.Errorf("auth = %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload["custom"] != "myalias" || payload["password"] != "s3cret" {
			t.Errorf("payload = %v", payload)
		}
		w.Write([]byte(`{"error":0,"id":991,"shorturl":"https://s.io/ab"}`))
	}))
	defer srv.Close()

	c := NewShortenerClient(srv.URL, "key123")
	link, err := c.Shorten(context.Background(), "https://example.com/long", "myalias", "s3cret")
	if err != nil {
		t.Fatalf("Shorten: %v", err)
	}
	if link.ID != "991" || link.ShortURL != "https://s.io/ab" {
		t.Errorf("link = %+v", link)
	}
}

func TestShortenerShortenAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":1,"message":"alias taken"}`))
	}))
	defer srv.Close()

	c := NewShortenerClient(srv.URL, "k")
	_, err := c.Shorten(context.Background(), "https://x", "taken", "")
	if err == nil || !strings.Contains(err.Error(), "alias taken") {
		t.Errorf("err = %v", err)
	}
}

func TestShortenerStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/url/991" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"error":0,"data":{"clicks":12,"uniqueClicks":9,"topCountries":{"US":7},"topBrowsers":{"Chrome":10}}}`))
	}))
	defer srv.Close()

	c := NewShortenerClient(srv.URL, "k")
	stats, err := c.Stats(context.Background(), "991")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Clicks != 12 || stats.UniqueClicks != 9 || stats.TopCountries["US"] != 7 {
		t.Errorf("stats = %+v", stats)
	}
}
