package gateway

import (
	"sync"
	"time"
)

// WebhookRateLimiter caps webhook deliveries per chat with a sliding
// window. It protects the bot from a looping peer or a flood attack on
// the public webhook URL; legitimate chats never come close to the cap.
type WebhookRateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	maxHits int
	maxKeys int
	hits    map[string][]time.Time
	now     func() time.Time
}

const (
	defaultWindow  = time.Minute
	defaultMaxHits = 30
	// maxTrackedKeys bounds memory if an attacker rotates chat ids.
	maxTrackedKeys = 4096
)

func NewWebhookRateLimiter() *WebhookRateLimiter {
	return &WebhookRateLimiter{
		window:  defaultWindow,
		maxHits: defaultMaxHits,
		maxKeys: maxTrackedKeys,
		hits:    make(map[string][]time.Time),
		now:     time.Now,
	}
}

// WithLimit overrides hits-per-window.
func (l *WebhookRateLimiter) WithLimit(maxHits int) *WebhookRateLimiter {
	if maxHits > 0 {
		l.maxHits = maxHits
	}
	return l
}

// Allow reports whether a delivery for key may proceed and records it.
func (l *WebhookRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.maxHits {
		l.hits[key] = recent
		return false
	}

	if _, tracked := l.hits[key]; !tracked && len(l.hits) >= l.maxKeys {
		// Table full of strangers: drop everything stale first, and if
		// the table is still full, fail open for the new key.
		for k, ts := range l.hits {
			live := ts[:0]
			for _, t := range ts {
				if t.After(cutoff) {
					live = append(live, t)
				}
			}
			if len(live) == 0 {
				delete(l.hits, k)
			} else {
				l.hits[k] = live
			}
		}
		if len(l.hits) >= l.maxKeys {
			return true
		}
	}

	l.hits[key] = append(recent, now)
	return true
}
