// Package greenapi is a client for the Green API WhatsApp gateway. Only
// the endpoints the bot uses are covered: sending messages and files,
// number checks, avatars, contact info, and instance settings.
package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to one Green API instance. Sends are throttled through a
// shared limiter so a burst of group traffic cannot trip the provider's
// per-instance rate limit.
type Client struct {
	base       string
	instanceID string
	token      string
	http       *http.Client
	limiter    *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSendRate caps outbound sends at n per minute.
func WithSendRate(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
}

// New creates a client for the given instance.
func New(base, instanceID, token string, opts ...Option) *Client {
	c := &Client{
		base:       base,
		instanceID: instanceID,
		token:      token,
		http:       &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(3*time.Second), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s", c.base, c.instanceID, method, c.token)
}

func (c *Client) postJSON(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("greenapi: encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) getJSON(ctx context.Context, method string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(method), nil)
	if err != nil {
		return err
	}
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("greenapi: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("greenapi: %s: status %d: %s", method, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("greenapi: decode %s: %w", method, err)
	}
	return nil
}

// SendMessage sends a text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	payload := map[string]string{"chatId": chatID, "message": text}
	return c.postJSON(ctx, "sendMessage", payload, nil)
}

// SendFileByURL sends a file the provider fetches from a URL, with an
// optional caption.
func (c *Client) SendFileByURL(ctx context.Context, chatID, fileURL, fileName, caption string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	payload := map[string]string{
		"chatId":   chatID,
		"urlFile":  fileURL,
		"fileName": fileName,
	}
	if caption != "" {
		payload["caption"] = caption
	}
	return c.postJSON(ctx, "sendFileByUrl", payload, nil)
}

// SendFileByUpload uploads raw bytes as a file attachment.
func (c *Client) SendFileByUpload(ctx context.Context, chatID, fileName string, data []byte, caption string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chatId", chatID); err != nil {
		return err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendFileByUpload"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, "sendFileByUpload", nil)
}

// CheckWhatsApp reports whether a phone number has a WhatsApp account.
func (c *Client) CheckWhatsApp(ctx context.Context, phone string) (bool, error) {
	var out struct {
		ExistsWhatsapp bool `json:"existsWhatsapp"`
	}
	// The API wants the number as a JSON number, not a string.
	n, err := strconv.ParseUint(phone, 10, 64)
	if err != nil {
		return false, fmt.Errorf("greenapi: bad phone number %q", phone)
	}
	if err := c.postJSON(ctx, "checkWhatsapp", map[string]uint64{"phoneNumber": n}, &out); err != nil {
		return false, err
	}
	return out.ExistsWhatsapp, nil
}

// GetAvatar fetches a chat's profile picture URL. available is false
// when the account hides or lacks one.
func (c *Client) GetAvatar(ctx context.Context, chatID string) (url string, available bool, err error) {
	var out struct {
		URLAvatar string `json:"urlAvatar"`
		Available bool   `json:"available"`
	}
	payload := map[string]string{"chatId": chatID}
	if err := c.postJSON(ctx, "getAvatar", payload, &out); err != nil {
		return "", false, err
	}
	return out.URLAvatar, out.Available && out.URLAvatar != "", nil
}

// ContactInfo is the subset of contact details the bot reports.
type ContactInfo struct {
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	ChatID      string `json:"chatId"`
	About       string `json:"description"`
}

// GetContactInfo fetches details for a contact.
func (c *Client) GetContactInfo(ctx context.Context, chatID string) (ContactInfo, error) {
	var out ContactInfo
	payload := map[string]string{"chatId": chatID}
	err := c.postJSON(ctx, "getContactInfo", payload, &out)
	return out, err
}

// Settings is the instance configuration subset the bot reads.
type Settings struct {
	WID string `json:"wid"` // the instance's own WhatsApp id
}

// GetSettings fetches the instance settings. The wid field is how the
// bot learns its own number so it can ignore its own outbound echoes.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var out Settings
	err := c.getJSON(ctx, "getWaSettings", &out)
	return out, err
}
