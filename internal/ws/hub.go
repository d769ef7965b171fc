// Package ws broadcasts daemon events to WebSocket clients. This is a
// server-push-only endpoint: inbound frames are read solely to service
// ping/pong and close.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oelohome/oelod/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
	queueSize      = 64
)

// conn is one connected client with its own outbound queue. A client that
// cannot drain its queue is dropped rather than allowed to stall the others.
type conn struct {
	ws    *websocket.Conn
	queue chan []byte
	once  sync.Once
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.queue)
	})
}

// Hub fans daemon events out to all connected WebSocket clients.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	unsub  func()
}

// NewHub creates a hub and subscribes it to the event bus.
func NewHub(logger *slog.Logger, bus *events.Bus) *Hub {
	h := &Hub{
		logger: logger,
		conns:  make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	h.unsub = bus.Subscribe(h.broadcast)
	return h
}

func (h *Hub) broadcast(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("ws: failed to encode event", "type", e.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.queue <- data:
		default:
			h.logger.Warn("ws: client queue full, dropping client")
			delete(h.conns, c)
			c.close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown unsubscribes from the bus and disconnects every client.
func (h *Hub) Shutdown() {
	h.unsub()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.conns {
		delete(h.conns, c)
		c.close()
	}
	h.logger.Info("ws: hub shut down")
}

// ServeHTTP upgrades the request and serves the connection until either side
// closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("ws: upgrade failed", "error", err)
		return
	}

	c := &conn{ws: wsConn, queue: make(chan []byte, queueSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		wsConn.Close()
		return
	}
	h.conns[c] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("ws: client connected", "clients", count)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) drop(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		c.close()
	}
	count := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("ws: client disconnected", "clients", count)
}

func (h *Hub) writeLoop(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.queue:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes inbound frames so control frames get processed. Any
// payload the client sends is discarded.
func (h *Hub) readLoop(c *conn) {
	defer func() {
		h.drop(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxInboundSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("ws: read error", "error", err)
			}
			return
		}
	}
}
