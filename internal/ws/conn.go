package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Socket is the minimal transport surface the registry needs. Satisfied by
// *websocket.Conn; tests substitute fakes.
type Socket interface {
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

const sendQueueSize = 64

// Conn binds one live socket to an authenticated user and device session.
// Outgoing events go through a buffered queue drained by a single writer
// goroutine, so a slow peer never stalls fan-out to anyone else and delivery
// to one connection stays ordered.
type Conn struct {
	UserID    int64
	SessionID string

	sock Socket
	hub  *Hub
	send chan any
	done chan struct{}
	once sync.Once
}

// NewConn wraps a socket for the given user and session. The connection is
// inert until registered with a Hub.
func NewConn(sock Socket, userID int64, sessionID string) *Conn {
	return &Conn{
		UserID:    userID,
		SessionID: sessionID,
		sock:      sock,
		send:      make(chan any, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// Send queues an event for delivery. It never blocks: a full queue means the
// peer is too slow to keep, and the caller should drop the connection.
func (c *Conn) Send(payload any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Ping writes a control ping with the given deadline. Used by the janitor
// for liveness; an error means the transport is gone.
func (c *Conn) Ping(deadline time.Time) error {
	return c.sock.WriteControl(websocket.PingMessage, nil, deadline)
}

// stop signals the writer to flush and close the socket. Idempotent.
func (c *Conn) stop() {
	c.once.Do(func() { close(c.done) })
}

// writePump is the connection's single writer. On a write error it
// unregisters the connection; on stop it flushes the remaining queue (so
// terminal notices queued just before closing still go out) and closes the
// socket.
func (c *Conn) writePump() {
	defer c.sock.Close()
	for {
		select {
		case payload := <-c.send:
			if err := c.sock.WriteJSON(payload); err != nil {
				c.hub.Unregister(c)
				return
			}
		case <-c.done:
			for {
				select {
				case payload := <-c.send:
					_ = c.sock.WriteJSON(payload)
				default:
					return
				}
			}
		}
	}
}
