package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/feed"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"
)

// Hub broadcasts price changes to WebSocket clients.
type Hub struct {
	cfg    Config
	runID  string
	input  *feed.Buffer[orderbook.PricePoint]
	logger *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	statsMu   sync.Mutex
	broadcast int64
	dropped   int64
}

// client is one connected subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates a hub broadcasting changes read from input.
func NewHub(cfg Config, runID string, input *feed.Buffer[orderbook.PricePoint], logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.ClientBuffer < 1 {
		cfg.ClientBuffer = defaults.ClientBuffer
	}
	return &Hub{
		cfg:     cfg,
		runID:   runID,
		input:   input,
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.cfg.ClientBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("stream client connected", "remote", r.RemoteAddr, "clients", n)

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Run broadcasts buffered price changes until ctx is done or the input is
// closed and drained.
func (h *Hub) Run(ctx context.Context) {
	for {
		points := h.input.Drain(0)
		for _, p := range points {
			h.Broadcast(p)
		}
		if len(points) > 0 {
			continue
		}
		if h.input.Closed() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-h.input.Ready():
		}
	}
}

// Broadcast queues p for every client.
func (h *Hub) Broadcast(p orderbook.PricePoint) {
	data, err := json.Marshal(feed.NewPriceMessage(h.runID, p))
	if err != nil {
		h.logger.Error("marshal price message", "error", err)
		return
	}

	var dropped int64
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	h.statsMu.Lock()
	h.broadcast++
	h.dropped += dropped
	h.statsMu.Unlock()

	if dropped > 0 {
		h.logger.Debug("client buffer full, dropping message", "clients", dropped)
	}
}

// Stats returns hub statistics.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()

	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	return HubStats{Clients: n, Broadcast: h.broadcast, Dropped: h.dropped}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// writeLoop sends queued messages and keepalive pings.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		h.remove(c)
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// flush what is already queued
			for {
				select {
				case data := <-c.send:
					if err := h.write(c, data); err != nil {
						return
					}
				default:
					return
				}
			}
		case data := <-c.send:
			if err := h.write(c, data); err != nil {
				h.logger.Debug("stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				h.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (h *Hub) write(c *client, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop discards client input and detects disconnects and stale clients.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	staleAfter := 2 * h.cfg.PingInterval
	c.conn.SetReadDeadline(time.Now().Add(staleAfter))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(staleAfter))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			select {
			case <-c.done:
			default:
				h.logger.Info("stream client disconnected", "error", err)
			}
			return
		}
	}
}
