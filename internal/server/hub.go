package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/colonyops/taskdeck/internal/deck"
)

// sendQueueSize bounds the per-viewer outbound queue. A viewer that cannot
// drain this many envelopes is treated as dead and pruned.
const sendQueueSize = 16

// Hub fans broadcast envelopes out to connected viewers. A slow or closed
// viewer is pruned as a side effect of the attempted send and never delays
// delivery to the others.
type Hub struct {
	log zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log.With().Str("component", "hub").Logger(),
		clients: make(map[*client]struct{}),
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// close removes the client from the hub and tears down its connection.
// Safe to call from any goroutine, any number of times.
func (c *client) close() {
	c.once.Do(func() {
		c.hub.remove(c)
		close(c.done)
		_ = c.conn.Close()
	})
}

// trySend queues a message without blocking. A full queue reports failure.
func (c *client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		}
	}
}

// readPump discards inbound frames; viewers never send application data.
// It exists to detect the close handshake promptly.
func (c *client) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.close()
			return
		}
	}
}

// Attach registers a new viewer connection. The initial baseline message is
// queued before registration, so the viewer never observes an incremental
// envelope without first having a full snapshot.
func (h *Hub) Attach(conn *websocket.Conn, initial []byte) {
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}

	c.send <- initial
	go c.writePump()
	go c.readPump()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Info().Int("clients", n).Msg("viewer connected")
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.Info().Int("clients", n).Msg("viewer disconnected")
	}
}

// Broadcast serializes the envelope once and writes it to a snapshot of the
// current membership. Failed sends mark the member for removal; iteration
// never happens over a collection being mutated.
func (h *Hub) Broadcast(env deck.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal envelope")
		return
	}

	h.mu.Lock()
	members := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		members = append(members, c)
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range members {
		if c.trySend(data) {
			sent++
			continue
		}
		c.close()
	}

	if sent > 0 {
		h.log.Debug().Int("clients", sent).Msg("broadcast delivered")
	}
}

// ClientCount reports the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all viewers and rejects future attachments.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	members := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		members = append(members, c)
	}
	h.mu.Unlock()

	for _, c := range members {
		c.close()
	}
}
