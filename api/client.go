// Package api is the thin REST client for the collaborating chat backend:
// history seeding, chat lifecycle, history clearing and feedback persistence.
// Everything here is plain request/response plumbing; failures are returned
// to the caller and never fatal.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ragchat/chatstream/wire"
)

// Client talks to the chat backend's REST surface.
type Client struct {
	base  *url.URL
	token string
	httpc *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client, mainly for tests.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// NewClient creates a REST client for the given base URL. The token is sent
// as a bearer credential on every request; pass an empty string for
// unauthenticated backends.
func NewClient(base, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	c := &Client{
		base:  u,
		token: token,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Error is a non-2xx response from the backend.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: unexpected status %d: %s", e.Status, e.Body)
}

// Chat describes a chat session as known to the backend.
type Chat struct {
	ID      string `json:"id"`
	BotID   string `json:"bot_id"`
	Title   string `json:"title,omitempty"`
	Created int64  `json:"created,omitempty"`
}

// GetHistory fetches the stored fragment history for a chat. Replaying the
// result through the transcript reducer reconstructs the transcript, which
// is how a client seeds its state on mount.
func (c *Client) GetHistory(ctx context.Context, botID, chatID string) ([]wire.Fragment, error) {
	var out struct {
		History []wire.Fragment `json:"history"`
	}
	path := fmt.Sprintf("/api/v1/bots/%s/chats/%s/history", botID, chatID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// CreateChat opens a new chat session under a bot.
func (c *Client) CreateChat(ctx context.Context, botID string) (*Chat, error) {
	var out Chat
	path := fmt.Sprintf("/api/v1/bots/%s/chats", botID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteChat removes a chat session and its history.
func (c *Client) DeleteChat(ctx context.Context, botID, chatID string) error {
	path := fmt.Sprintf("/api/v1/bots/%s/chats/%s", botID, chatID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ClearHistory truncates a chat's stored history server-side. The caller is
// responsible for the matching local truncation on success.
func (c *Client) ClearHistory(ctx context.Context, botID, chatID string) error {
	path := fmt.Sprintf("/api/v1/bots/%s/chats/%s/history", botID, chatID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// SubmitFeedback persists a vote for one message. An empty feedback value
// clears any stored vote (the toggle-off case).
func (c *Client) SubmitFeedback(ctx context.Context, botID, chatID, messageID string, fb wire.Feedback) error {
	path := fmt.Sprintf("/api/v1/bots/%s/chats/%s/messages/%s/feedback", botID, chatID, messageID)
	return c.do(ctx, http.MethodPost, path, fb, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	u := *c.base
	u.Path = path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &Error{Status: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
