package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ChatClient talks to the conversational assistant endpoint. The
// service keys conversation threads by an opaque chat token it returns
// with each reply.
type ChatClient struct {
	base        string
	http        *http.Client
	retryConfig RetryConfig
}

// ChatOption customizes a ChatClient.
type ChatOption func(*ChatClient)

func WithChatHTTPClient(hc *http.Client) ChatOption {
	return func(c *ChatClient) { c.http = hc }
}

func WithChatRetry(cfg RetryConfig) ChatOption {
	return func(c *ChatClient) { c.retryConfig = cfg }
}

// NewChatClient creates a client for the assistant at base.
func NewChatClient(base string, opts ...ChatOption) *ChatClient {
	c := &ChatClient{
		base:        base,
		http:        &http.Client{Timeout: 90 * time.Second},
		retryConfig: DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ChatReply is one assistant response.
type ChatReply struct {
	Text  string
	Token string // conversation token to send with the next message
}

type chatResponse struct {
	Reply    string `json:"reply"`
	Response string `json:"response"`
	Message  string `json:"message"`
	ChatID   string `json:"chatid"`
	ChatID2  string `json:"chat_id"`
}

// Send forwards one user message. token carries the conversation
// thread; empty starts a new one.
func (c *ChatClient) Send(ctx context.Context, token, message string) (ChatReply, error) {
	q := url.Values{}
	if token != "" {
		q.Set("chatid", token)
	}
	q.Set("message", message)
	endpoint := c.base + "?" + q.Encode()

	return RetryDo(ctx, c.retryConfig, func() (ChatReply, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return ChatReply{}, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return ChatReply{}, Transient(fmt.Errorf("chat: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return ChatReply{}, Transient(fmt.Errorf("chat: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return ChatReply{}, fmt.Errorf("chat: status %d: %s", resp.StatusCode, snippet)
		}

		var out chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return ChatReply{}, fmt.Errorf("chat: decode: %w", err)
		}

		reply := ChatReply{Token: firstNonEmpty(out.ChatID, out.ChatID2)}
		reply.Text = firstNonEmpty(out.Reply, out.Response, out.Message)
		if reply.Text == "" {
			return ChatReply{}, fmt.Errorf("chat: empty reply")
		}
		return reply, nil
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
