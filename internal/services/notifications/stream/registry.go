// Package stream delivers notifications to live websocket connections. The
// registry tracks the single live connection per user; the keeper prunes the
// dead ones. Persistence stays in the notifications domain, this package is
// transport only.
package stream

import (
	"encoding/json"
	"sync"
)

// Frame is the wire envelope for every stream message in both directions.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Frame types exchanged on the stream.
const (
	FrameTypeConnect      = "connect"
	FrameTypeNotification = "notification"
	FrameTypeSummary      = "notification-summary"
	FrameTypePing         = "ping"
	FrameTypeError        = "error"
)

// Sink is the write half of one stream connection. Implementations must be
// safe to call from the handler, the dispatcher, and the keeper.
type Sink interface {
	WriteFrame(frame Frame) error
	Close() error
}

// Connection is the handle returned by Register. The handler keeps it so
// teardown removes exactly the connection it installed, never a newer
// replacement for the same user.
type Connection struct {
	userID string
	sink   Sink
}

// UserID returns the owner of this connection.
func (c *Connection) UserID() string {
	return c.userID
}

// Registry holds the single live connection per user. Registering a second
// connection for the same user closes and replaces the first (last writer
// wins). It is the one shared mutable structure in the realtime core and is
// safe for concurrent use from handlers, the dispatcher, and the keeper.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Connection
}

// NewRegistry constructs an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
	}
}

// Register installs the connection for userID, closing and removing any
// previous one. The close on the old sink is a signal, not a handshake; a
// stalled old stream cannot block the new registration.
func (r *Registry) Register(userID string, sink Sink) *Connection {
	conn := &Connection{
		userID: userID,
		sink:   sink,
	}
	r.mu.Lock()
	previous := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()
	if previous != nil {
		_ = previous.sink.Close()
	}
	return conn
}

// Unregister removes and closes the user's connection if present. Idempotent.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	conn := r.conns[userID]
	delete(r.conns, userID)
	r.mu.Unlock()
	if conn != nil {
		_ = conn.sink.Close()
	}
}

// Remove detaches one specific connection handle. A handle that was already
// replaced by a newer registration is left alone, so a slow handler teardown
// never tears down its successor.
func (r *Registry) Remove(conn *Connection) {
	if conn == nil {
		return
	}
	r.mu.Lock()
	current, ok := r.conns[conn.userID]
	if ok && current == conn {
		delete(r.conns, conn.userID)
	}
	r.mu.Unlock()
	_ = conn.sink.Close()
}

// IsConnected reports whether the user holds a live connection.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[userID]
	return ok
}

// Count returns the total number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// TryDeliver writes one frame to the user's connection, best effort. A write
// failure unregisters the connection and reports false; the caller must treat
// false as "recipient will catch up via the inbox", never as an error.
func (r *Registry) TryDeliver(userID string, frame Frame) bool {
	r.mu.Lock()
	conn := r.conns[userID]
	r.mu.Unlock()
	if conn == nil {
		return false
	}
	if err := conn.sink.WriteFrame(frame); err != nil {
		r.Remove(conn)
		return false
	}
	return true
}

// snapshot returns the current connections without holding the lock during
// any subsequent sends.
func (r *Registry) snapshot() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}
