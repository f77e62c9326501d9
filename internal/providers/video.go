package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// VideoClient resolves a social-media page URL to a direct video file
// URL through the downloader service.
type VideoClient struct {
	base        string
	http        *http.Client
	retryConfig RetryConfig
}

type VideoOption func(*VideoClient)

func WithVideoHTTPClient(hc *http.Client) VideoOption {
	return func(c *VideoClient) { c.http = hc }
}

func NewVideoClient(base string, opts ...VideoOption) *VideoClient {
	c := &VideoClient{
		base:        base,
		http:        &http.Client{Timeout: 120 * time.Second},
		retryConfig: DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Media is a resolved downloadable video.
type Media struct {
	URL   string
	Title string
}

type videoResponse struct {
	Success   bool `json:"success"`
	MediaInfo struct {
		VideoURL string `json:"videoUrl"`
		Title    string `json:"title"`
	} `json:"mediaInfo"`
}

// Resolve fetches the direct video URL behind a page link.
func (c *VideoClient) Resolve(ctx context.Context, pageURL string) (Media, error) {
	endpoint := c.base + "?url=" + url.QueryEscape(pageURL)

	return RetryDo(ctx, c.retryConfig, func() (Media, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return Media{}, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return Media{}, Transient(fmt.Errorf("video: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return Media{}, Transient(fmt.Errorf("video: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return Media{}, fmt.Errorf("video: status %d", resp.StatusCode)
		}

		var out videoResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return Media{}, fmt.Errorf("video: decode: %w", err)
		}
		if !out.Success || out.MediaInfo.VideoURL == "" {
			return Media{}, fmt.Errorf("video: no downloadable media for %s", pageURL)
		}
		return Media{URL: out.MediaInfo.VideoURL, Title: out.MediaInfo.Title}, nil
	})
}
