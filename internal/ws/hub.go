package ws

import (
	"sync"
	"time"

	"hunter_trials/internal/domain"
	"hunter_trials/internal/logger"
	"hunter_trials/internal/metrics"

	"github.com/gorilla/websocket"
)

// Hub fans session snapshots out to every socket open for that session
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // sessionID -> clients
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.SessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.SessionID] = set
	}
	if _, dup := set[c]; !dup {
		set[c] = struct{}{}
		metrics.WSClients.Inc()
	}
}

// Unregister removes the client. After it returns Publish no longer writes
// to the client's Send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.SessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	metrics.WSClients.Dec()
	if len(set) == 0 {
		delete(h.clients, c.SessionID)
	}
}

// CloseSession drops every socket of a session and closes its connection.
// The clients' read pumps then exit on their own.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	set := h.clients[sessionID]
	delete(h.clients, sessionID)
	h.mu.Unlock()

	for c := range set {
		metrics.WSClients.Dec()
		_ = c.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
			time.Now().Add(writeWait))
		c.Conn.Close()
	}
	if len(set) > 0 {
		logger.Info("ws session closed", "session_id", sessionID, "clients", len(set))
	}
}

// Publish never blocks: a client whose buffer is full misses the snapshot
// and catches up with the next one.
func (h *Hub) Publish(snap domain.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[snap.SessionID]
	if len(set) == 0 {
		return
	}
	msg, err := encodeState(snap)
	if err != nil {
		logger.Error("encode snapshot", "session_id", snap.SessionID, "error", err)
		return
	}
	for c := range set {
		select {
		case c.Send <- msg:
		default:
			logger.Warn("ws send buffer full, snapshot dropped", "session_id", snap.SessionID, "version", snap.Version)
		}
	}
}

// Count returns the number of sockets open for a session
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
