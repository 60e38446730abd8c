package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

type tokenCheck string

func (t tokenCheck) Validate(_ context.Context, token string) (string, error) {
	if token != string(t) {
		return "", errors.New("bad token")
	}
	return "sub", nil
}

func startWSServer(t *testing.T, validator TokenValidator) (*httptest.Server, *Registry, *fakeSessions) {
	t.Helper()
	reg := NewRegistry()
	sessions := newFakeSessions()
	gw := New(sessions, &fakeRelay{reply: "pong"}, reg, logger.Discard())
	srv := httptest.NewServer(NewServer(gw, reg, validator, logger.Discard()))
	t.Cleanup(srv.Close)
	return srv, reg, sessions
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func readJSON(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestServer_MessageRoundTrip(t *testing.T) {
	srv, reg, sessions := startWSServer(t, nil)

	c, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"sendMessage","user_id":"u1","message":"hi"}`)))

	// the push is written before the frame response
	push := readJSON(t, c)
	assert.Equal(t, "pong", push["response"])

	resp := readJSON(t, c)
	assert.EqualValues(t, 200, resp["statusCode"])
	assert.Equal(t, "Message processed successfully", resp["body"])

	assert.Equal(t, 1, reg.Len())
	sessions.mu.Lock()
	assert.Equal(t, []string{"hi"}, sessions.history["u1"])
	sessions.mu.Unlock()
}

func TestServer_UnknownAction(t *testing.T) {
	srv, _, _ := startWSServer(t, nil)

	c, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"nope"}`)))
	resp := readJSON(t, c)
	assert.EqualValues(t, 400, resp["statusCode"])
	assert.Equal(t, "Invalid action", resp["body"])
}

func TestServer_RequiresToken(t *testing.T) {
	srv, _, _ := startWSServer(t, tokenCheck("good"))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=bad"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	c, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=good"), nil)
	require.NoError(t, err)
	_ = c.Close()
}

func TestRegistry_PushToUnknownConnection(t *testing.T) {
	err := NewRegistry().Push(context.Background(), "missing", []byte(`{}`))
	assert.ErrorIs(t, err, ErrConnectionGone)
}
