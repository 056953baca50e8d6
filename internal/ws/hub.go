package ws

import "sync"

// Hub is the process-wide presence registry: it maps authenticated users to
// their live connections and device sessions to connections for O(1)
// revocation. It owns connection lifecycle; everything else addresses
// connections through it. Locks guard only map mutation, never a network
// send.
type Hub struct {
	mu       sync.RWMutex
	users    map[int64]map[*Conn]struct{}
	sessions map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users:    make(map[int64]map[*Conn]struct{}),
		sessions: make(map[string]map[*Conn]struct{}),
	}
}

// Register adds a connection and starts its writer. It reports whether this
// is the user's first live connection (the caller marks the user online).
func (h *Hub) Register(c *Conn) (first bool) {
	h.mu.Lock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Conn]struct{})
		first = true
	}
	h.users[c.UserID][c] = struct{}{}
	if h.sessions[c.SessionID] == nil {
		h.sessions[c.SessionID] = make(map[*Conn]struct{})
	}
	h.sessions[c.SessionID][c] = struct{}{}
	c.hub = h
	h.mu.Unlock()

	go c.writePump()
	return first
}

// Unregister removes a connection and stops it. It reports whether the
// connection was still registered and whether it was the user's last one
// (the caller stamps last-seen and marks the user offline).
func (h *Hub) Unregister(c *Conn) (removed, last bool) {
	h.mu.Lock()
	if conns, ok := h.users[c.UserID]; ok {
		if _, ok := conns[c]; ok {
			removed = true
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.users, c.UserID)
				last = true
			}
		}
	}
	if conns, ok := h.sessions[c.SessionID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.sessions, c.SessionID)
		}
	}
	h.mu.Unlock()

	c.stop()
	return removed, last
}

// ConnsFor returns a snapshot of the user's live connections.
func (h *Hub) ConnsFor(userID int64) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Conn, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		conns = append(conns, c)
	}
	return conns
}

// Conns returns a snapshot of every live connection.
func (h *Hub) Conns() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var conns []*Conn
	for _, set := range h.users {
		for c := range set {
			conns = append(conns, c)
		}
	}
	return conns
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// SessionIDs returns the distinct session ids with live connections.
func (h *Hub) SessionIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

// RevokeSession forcibly closes every connection tied to the session id.
// Idempotent: a session with no live connection is a no-op. Used by logout,
// "logout all other devices", and the janitor's revocation sweep.
func (h *Hub) RevokeSession(sessionID string) int {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.sessions[sessionID]))
	for c := range h.sessions[sessionID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Send(Event{Type: "session_revoked", Data: map[string]any{"session_id": sessionID}})
		h.Unregister(c)
	}
	return len(conns)
}

// RevokeUser pushes a terminal account-deleted notice to each of the user's
// connections and closes them all. Afterwards the user has zero entries in
// the registry.
func (h *Hub) RevokeUser(userID int64) int {
	conns := h.ConnsFor(userID)
	for _, c := range conns {
		c.Send(Event{Type: "account_deleted", Data: map[string]any{"user_id": userID}})
		h.Unregister(c)
	}
	return len(conns)
}
