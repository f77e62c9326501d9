package gateway

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	l := NewWebhookRateLimiter().WithLimit(3)
	for i := 0; i < 3; i++ {
		if !l.Allow("chat") {
			t.Fatalf("hit %d denied under limit", i)
		}
	}
	if l.Allow("chat") {
		t.Fatal("hit over limit allowed")
	}
	// Other keys are unaffected.
	if !l.Allow("other") {
		t.Fatal("unrelated key denied")
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewWebhookRateLimiter().WithLimit(2)
	l.now = func() time.Time { return now }

	l.Allow("c")
	l.Allow("c")
	if l.Allow("c") {
		t.Fatal("third hit inside window allowed")
	}

	now = now.Add(defaultWindow + time.Second)
	if !l.Allow("c") {
		t.Fatal("hit after window expiry denied")
	}
}

func TestRateLimiterKeyCapFailsOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewWebhookRateLimiter()
	l.now = func() time.Time { return now }
	l.maxKeys = 4

	for _, k := range []string{"a", "b", "c", "d"} {
		l.Allow(k)
	}
	// Table full, all entries fresh: the stranger is let through but
	// not tracked.
	if !l.Allow("stranger") {
		t.Fatal("new key denied at capacity")
	}

	// Once the old entries age out they get evicted and tracking resumes.
	now = now.Add(defaultWindow + time.Second)
	if !l.Allow("fresh") {
		t.Fatal("key denied after eviction")
	}
}
