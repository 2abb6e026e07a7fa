// Package rest is a minimal client for the Discord HTTP API: the gateway
// bootstrap endpoint plus the handful of channel and guild operations the
// bot performs.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qyzk/ohno/internal/logging"
)

// Client is a direct HTTP client for the Discord API.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	client    *http.Client
	log       *logging.Logger
}

// New creates a REST client. hostname is the API host without scheme
// ("discord.com"); apiVersion selects the versioned path prefix.
func New(hostname string, apiVersion int, token, version string, log *logging.Logger) *Client {
	return &Client{
		baseURL:   fmt.Sprintf("https://%s/api/v%d", hostname, apiVersion),
		token:     token,
		userAgent: fmt.Sprintf("DiscordBot (https://github.com/qyzk/ohno, %s)", version),
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log.Sub("rest"),
	}
}

// NewWithBaseURL creates a client against a fully-formed base URL, versioned
// path included. Used by tests.
func NewWithBaseURL(baseURL, token, version string, log *logging.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		token:     token,
		userAgent: fmt.Sprintf("DiscordBot (https://github.com/qyzk/ohno, %s)", version),
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log.Sub("rest"),
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d): %s (code %d)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

// SessionStartLimit is the identify budget attached to the gateway
// bootstrap response.
type SessionStartLimit struct {
	Total          int   `json:"total"`
	Remaining      int   `json:"remaining"`
	ResetAfter     int64 `json:"reset_after"` // milliseconds
	MaxConcurrency int   `json:"max_concurrency"`
}

// GatewayBot is the response of the gateway bootstrap endpoint.
type GatewayBot struct {
	URL               string            `json:"url"`
	Shards            int               `json:"shards"`
	SessionStartLimit SessionStartLimit `json:"session_start_limit"`
}

// Message is the subset of a channel message the bot reads back.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// GetGatewayBot fetches the WebSocket URL, shard count, and session start
// budget for the authenticated bot.
func (c *Client) GetGatewayBot(ctx context.Context) (GatewayBot, error) {
	var out GatewayBot
	if err := c.do(ctx, http.MethodGet, "/gateway/bot", nil, &out); err != nil {
		return GatewayBot{}, fmt.Errorf("fetching gateway info: %w", err)
	}
	return out, nil
}

// CreateMessage posts content to a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID, content string) (Message, error) {
	body := map[string]string{"content": content}
	var out Message
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return Message{}, fmt.Errorf("creating message: %w", err)
	}
	return out, nil
}

// DeleteMessage removes a message from a channel.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// RemoveGuildMember kicks a member from a guild.
func (c *Client) RemoveGuildMember(ctx context.Context, guildID, userID string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("removing guild member: %w", err)
	}
	return nil
}

// do sends one request and decodes the response into out when out is
// non-nil. Bodies on 204 responses are ignored.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("api request")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
