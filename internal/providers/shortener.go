package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ShortenerClient talks to the URL shortener's REST API.
type ShortenerClient struct {
	base        string
	apiKey      string
	channel     int
	http        *http.Client
	retryConfig RetryConfig
}

type ShortenerOption func(*ShortenerClient)

func WithShortenerHTTPClient(hc *http.Client) ShortenerOption {
	return func(c *ShortenerClient) { c.http = hc }
}

// WithShortenerChannel tags created links with a channel id so the
// bot's links are grouped in the shortener dashboard.
func WithShortenerChannel(id int) ShortenerOption {
	return func(c *ShortenerClient) { c.channel = id }
}

func NewShortenerClient(base, apiKey string, opts ...ShortenerOption) *ShortenerClient {
	c := &ShortenerClient{
		base:        strings.TrimRight(base, "/"),
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 30 * time.Second},
		retryConfig: DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ShortLink is one created short URL.
type ShortLink struct {
	ID       string
	ShortURL string
	LongURL  string
}

// LinkStats is the click report for one link.
type LinkStats struct {
	Clicks       int64
	UniqueClicks int64
	TopCountries map[string]int64
	TopBrowsers  map[string]int64
}

func (c *ShortenerClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Transient(fmt.Errorf("shortener: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Transient(fmt.Errorf("shortener: status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("shortener: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Shorten creates a short link, optionally with a custom alias and a
// visitor password.
func (c *ShortenerClient) Shorten(ctx context.Context, longURL, custom, password string) (ShortLink, error) {
	payload := map[string]any{"url": longURL}
	if c.channel > 0 {
		payload["channel"] = c.channel
	}
	if custom != "" {
		payload["custom"] = custom
	}
	if password != "" {
		payload["password"] = password
	}

	return RetryDo(ctx, c.retryConfig, func() (ShortLink, error) {
		var out struct {
			Error    json.Number `json:"error"`
			Message  string      `json:"message"`
			ID       json.Number `json:"id"`
			ShortURL string      `json:"shorturl"`
		}
		if err := c.do(ctx, http.MethodPost, "/url/add", payload, &out); err != nil {
			return ShortLink{}, err
		}
		if out.Error.String() != "0" {
			return ShortLink{}, fmt.Errorf("shortener: %s", out.Message)
		}
		return ShortLink{ID: out.ID.String(), ShortURL: out.ShortURL, LongURL: longURL}, nil
	})
}

// Stats fetches the click report for a link id.
func (c *ShortenerClient) Stats(ctx context.Context, linkID string) (LinkStats, error) {
	return RetryDo(ctx, c.retryConfig, func() (LinkStats, error) {
		var out struct {
			Error   json.Number `json:"error"`
			Details struct {
				ID json.Number `json:"id"`
			} `json:"details"`
			Data struct {
				Clicks       int64            `json:"clicks"`
				UniqueClicks int64            `json:"uniqueClicks"`
				TopCountries map[string]int64 `json:"topCountries"`
				TopBrowsers  map[string]int64 `json:"topBrowsers"`
			} `json:"data"`
		}
		if err := c.do(ctx, http.MethodGet, "/url/"+linkID, nil, &out); err != nil {
			return LinkStats{}, err
		}
		if out.Error.String() != "0" {
			return LinkStats{}, fmt.Errorf("shortener: link %s not found", linkID)
		}
		return LinkStats{
			Clicks:       out.Data.Clicks,
			UniqueClicks: out.Data.UniqueClicks,
			TopCountries: out.Data.TopCountries,
			TopBrowsers:  out.Data.TopBrowsers,
		}, nil
	})
}
