package utility

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow CORS for development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DefaultWriteWait bounds a single socket write so a stalled client is dropped.
const DefaultWriteWait = 10 * time.Second

// hubClient serializes writes to one socket. gorilla/websocket allows a single
// concurrent writer per connection.
type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubClient) write(v any, wait time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
			return err
		}
	}
	return c.conn.WriteJSON(v)
}

// ChatHub holds the open sockets of every chat session: Map[SessionID] -> set of connections.
// The hub lock only guards the map; writes happen outside it under a per-socket lock,
// so a slow client never holds up another session.
type ChatHub struct {
	WriteWait time.Duration

	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]*hubClient
}

func NewChatHub() *ChatHub {
	return &ChatHub{
		WriteWait: DefaultWriteWait,
		clients:   make(map[string]map[*websocket.Conn]*hubClient),
	}
}

// Register a new client connection
func (h *ChatHub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[sessionID]
	if !ok {
		conns = make(map[*websocket.Conn]*hubClient)
		h.clients[sessionID] = conns
	}
	conns[conn] = &hubClient{conn: conn}
	log.Info().Str("session_id", sessionID).Int("connections", len(conns)).Msg("WebSocket Client Connected")
}

// Unregister a client (when they close the tab)
func (h *ChatHub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[sessionID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.clients, sessionID)
	}
	log.Info().Str("session_id", sessionID).Msg("WebSocket Client Disconnected")
}

// Connections reports how many sockets are open for a session.
func (h *ChatHub) Connections(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sessionID])
}

func (h *ChatHub) session(sessionID string) []*hubClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*hubClient, 0, len(h.clients[sessionID]))
	for _, c := range h.clients[sessionID] {
		out = append(out, c)
	}
	return out
}

func (h *ChatHub) client(sessionID string, conn *websocket.Conn) *hubClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[sessionID][conn]; ok {
		return c
	}
	return nil
}

// Broadcast sends v as JSON to every socket of the session. Sockets that fail
// the write, or miss the write deadline, are closed and dropped.
func (h *ChatHub) Broadcast(sessionID string, v any) {
	for _, c := range h.session(sessionID) {
		if err := c.write(v, h.WriteWait); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send WS message, removing client")
			c.conn.Close()
			h.Unregister(sessionID, c.conn)
		}
	}
}

// Send writes v to a single socket of the session, sharing the socket's write
// lock with Broadcast.
func (h *ChatHub) Send(sessionID string, conn *websocket.Conn, v any) error {
	c := h.client(sessionID, conn)
	if c == nil {
		return errors.New("websocket connection is not registered")
	}
	return c.write(v, h.WriteWait)
}
