package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oelohome/oelod/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n },
		2*time.Second, 10*time.Millisecond)
}

func TestHubDeliversEvents(t *testing.T) {
	bus := events.NewBus()
	hub := NewHub(testLogger(), bus)
	defer hub.Shutdown()

	conn := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	bus.Publish(events.NewEvent(events.PatternApplied, map[string]string{"pattern_id": "p1"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var e events.Event
	require.NoError(t, json.Unmarshal(msg, &e))
	assert.Equal(t, events.PatternApplied, e.Type)

	var data map[string]string
	require.NoError(t, json.Unmarshal(e.Data, &data))
	assert.Equal(t, "p1", data["pattern_id"])
}

func TestHubMultipleClients(t *testing.T) {
	bus := events.NewBus()
	hub := NewHub(testLogger(), bus)
	defer hub.Shutdown()

	c1 := dialTestHub(t, hub)
	c2 := dialTestHub(t, hub)
	waitForClients(t, hub, 2)

	bus.Publish(events.NewEvent(events.ControllerAdded, nil))

	for _, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := c.ReadMessage()
		require.NoError(t, err)
		var e events.Event
		require.NoError(t, json.Unmarshal(msg, &e))
		assert.Equal(t, events.ControllerAdded, e.Type)
	}
}

func TestHubClientDisconnect(t *testing.T) {
	bus := events.NewBus()
	hub := NewHub(testLogger(), bus)
	defer hub.Shutdown()

	conn := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubShutdownClosesClients(t *testing.T) {
	bus := events.NewBus()
	hub := NewHub(testLogger(), bus)

	conn := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	hub.Shutdown()
	assert.Zero(t, hub.ClientCount())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Publishing after shutdown must not panic or deliver.
	bus.Publish(events.NewEvent(events.PatternDeleted, nil))
}
