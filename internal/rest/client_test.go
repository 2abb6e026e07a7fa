package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qyzk/ohno/internal/logging"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithBaseURL(srv.URL, "tok", "test", logging.New(io.Discard, "debug"))
}

func TestGetGatewayBot(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/gateway/bot", r.URL.Path)
		assert.Equal(t, "Bot tok", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("User-Agent"), "DiscordBot")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"url": "wss://gateway.discord.gg",
			"shards": 1,
			"session_start_limit": {"total": 1000, "remaining": 997, "reset_after": 14400000, "max_concurrency": 1}
		}`)
	})

	info, err := c.GetGatewayBot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://gateway.discord.gg", info.URL)
	assert.Equal(t, 1, info.Shards)
	assert.Equal(t, 997, info.SessionStartLimit.Remaining)
	assert.Equal(t, int64(14400000), info.SessionStartLimit.ResetAfter)
}

func TestCreateMessage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/channels/123/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["content"])

		io.WriteString(w, `{"id": "456", "channel_id": "123", "content": "hello"}`)
	})

	msg, err := c.CreateMessage(context.Background(), "123", "hello")
	require.NoError(t, err)
	assert.Equal(t, "456", msg.ID)
	assert.Equal(t, "123", msg.ChannelID)
}

func TestDeleteMessage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/channels/123/messages/456", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteMessage(context.Background(), "123", "456"))
}

func TestRemoveGuildMember(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/guilds/1/members/2", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.RemoveGuildMember(context.Background(), "1", "2"))
}

func TestAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"code": 0, "message": "401: Unauthorized"}`)
	})

	_, err := c.GetGatewayBot(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Unauthorized")
}

func TestAPIError_NonJSONBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream broke")
	})

	_, err := c.GetGatewayBot(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestNew_BaseURL(t *testing.T) {
	c := New("discord.com", 10, "tok", "test", logging.New(io.Discard, "debug"))
	assert.Equal(t, "https://discord.com/api/v10", c.baseURL)
}
