package viewer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/c360/livebridge/pkg/timestamp"
)

// Message types sent to clients.
const (
	MessageSnapshot = "snapshot"
	MessageEvent    = "event"
)

// Message wraps everything written to a client.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 4096
)

type client struct {
	id          string
	conn        *websocket.Conn
	connectedAt time.Time
	closed      atomic.Bool
	closeOnce   sync.Once
	writeMu     sync.Mutex // gorilla connections allow one concurrent writer
}

func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Hub fans state changes out to WebSocket clients. A new client first gets a
// snapshot, then every change applied after it.
type Hub struct {
	upgrader websocket.Upgrader
	snapshot func() any
	logger   *slog.Logger
	metrics  *Metrics

	mu      sync.RWMutex
	clients map[string]*client

	seq       atomic.Uint64
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub returns a hub whose snapshots come from snapshot.
func NewHub(snapshot func() any, logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			// the viewer is a read-only debugging surface
			CheckOrigin: func(*http.Request) bool { return true },
		},
		snapshot: snapshot,
		logger:   logger,
		metrics:  metrics,
		clients:  make(map[string]*client),
		done:     make(chan struct{}),
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) message(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Type:      msgType,
		ID:        strconv.FormatUint(h.seq.Add(1), 10),
		Timestamp: timestamp.Now(),
		Payload:   raw,
	})
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "viewer shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:          uuid.NewString(),
		conn:        conn,
		connectedAt: time.Now(),
	}

	// Broadcasts wait on mu, so no event reaches the client before its snapshot.
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	data, err := h.message(MessageSnapshot, h.snapshot())
	if err == nil {
		err = c.write(websocket.TextMessage, data)
	}
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("Snapshot not delivered", "client", c.id, "error", err)
		_ = conn.Close()
		return
	}
	h.clients[c.id] = c
	n := len(h.clients)
	h.wg.Add(1)
	h.mu.Unlock()

	h.metrics.sent(len(data))
	h.metrics.clients(n)
	h.logger.Info("Viewer client connected", "client", c.id, "remote", r.RemoteAddr, "clients", n)

	go h.readLoop(c)
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	defer h.remove(c, "normal")

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		h.mu.Lock()
		delete(h.clients, c.id)
		n := len(h.clients)
		h.mu.Unlock()

		_ = c.conn.Close()
		h.metrics.disconnected(reason)
		h.metrics.clients(n)
		h.logger.Debug("Viewer client disconnected",
			"client", c.id, "reason", reason, "connected_for", time.Since(c.connectedAt))
	})
}

func (h *Hub) clientList() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if !c.closed.Load() {
			list = append(list, c)
		}
	}
	return list
}

// Broadcast sends payload to every client concurrently. A client whose write
// fails is dropped.
func (h *Hub) Broadcast(msgType string, payload any) {
	data, err := h.message(msgType, payload)
	if err != nil {
		h.logger.Error("Encode broadcast failed", "type", msgType, "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, c := range h.clientList() {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := c.write(websocket.TextMessage, data); err != nil {
				h.remove(c, "write_error")
				return
			}
			h.metrics.sent(len(data))
		}(c)
	}
	wg.Wait()
}

// Run pings clients until ctx is done or the hub is closed.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			for _, c := range h.clientList() {
				if err := c.write(websocket.PingMessage, nil); err != nil {
					h.remove(c, "ping_failed")
				}
			}
		}
	}
}

// Close disconnects every client and waits for their readers to exit.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		for _, c := range h.clientList() {
			h.remove(c, "shutdown")
		}
		h.wg.Wait()
	})
}
