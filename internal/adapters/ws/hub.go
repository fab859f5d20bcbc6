package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/dextap/pkg/logger"
	"github.com/okian/dextap/pkg/metrics"
)

const defaultClientBuffer = 256

// Hub accepts subscriber connections and broadcasts text frames to all of
// them. Each subscriber has its own bounded send buffer; a subscriber whose
// buffer is full is disconnected rather than slowing the others.
type Hub struct {
	upgrader     websocket.Upgrader
	clientBuffer int
	logger       logger.Logger

	mu      sync.RWMutex
	clients map[string]*subscriber
	closed  bool
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.send) })
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clientBuffer: defaultClientBuffer,
		logger:       logger.Get().Named("ws-hub"),
		clients:      make(map[string]*subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(ctx, "upgrade failed", logger.Error(err))
		return
	}

	s := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.clientBuffer),
	}
	if !h.add(s) {
		_ = conn.Close()
		return
	}
	h.logger.Info(ctx, "subscriber connected",
		logger.String("client_id", s.id),
		logger.String("remote", r.RemoteAddr),
	)

	go h.writeLoop(s)
	go h.readLoop(s)
}

func (h *Hub) add(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[s.id] = s
	metrics.UpdateHubClients(len(h.clients))
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	s, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		metrics.UpdateHubClients(len(h.clients))
	}
	h.mu.Unlock()

	if ok {
		s.stop()
		h.logger.Info(context.Background(), "subscriber disconnected", logger.String("client_id", id))
	}
}

// writeLoop is the only writer of data frames on s.conn.
func (h *Hub) writeLoop(s *subscriber) {
	defer func() { _ = s.conn.Close() }()

	for msg := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(s.id)
			return
		}
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(writeWait))
}

// readLoop discards inbound messages and notices when the subscriber leaves.
func (h *Hub) readLoop(s *subscriber) {
	defer h.remove(s.id)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast queues msg for every subscriber and returns how many accepted it.
// Subscribers with a full buffer are dropped.
func (h *Hub) Broadcast(msg []byte) int {
	h.mu.RLock()
	var full []string
	sent := 0
	for id, s := range h.clients {
		select {
		case s.send <- msg:
			sent++
		default:
			full = append(full, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range full {
		metrics.RecordHubDroppedClient()
		h.remove(id)
	}
	metrics.RecordHubBroadcast()
	return sent
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, s := range clients {
		s.stop()
	}
	metrics.UpdateHubClients(0)
	return nil
}
