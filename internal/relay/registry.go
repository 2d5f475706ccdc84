package relay

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ConnID is the opaque identity assigned to a connection at accept time.
type ConnID string

// Connection is one live client session. Room and name are written only by
// the dispatcher goroutine.
type Connection struct {
	id    ConnID
	peer  Peer
	room  string
	name  string
	alive atomic.Bool
}

// ID returns the connection identity.
func (c *Connection) ID() ConnID { return c.id }

// Room returns the room the connection is joined to, or "" when unjoined.
func (c *Connection) Room() string { return c.room }

// Name returns the display name recorded at join.
func (c *Connection) Name() string { return c.name }

// Registry tracks every live connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]*Connection
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[ConnID]*Connection)}
}

// Register assigns a fresh id to peer and records it as alive.
func (r *Registry) Register(peer Peer) *Connection {
	conn := &Connection{id: ConnID(uuid.NewString()), peer: peer}
	conn.alive.Store(true)

	r.mu.Lock()
	r.conns[conn.id] = conn
	r.mu.Unlock()
	return conn
}

// Unregister drops all state for id. Unknown ids are ignored.
func (r *Registry) Unregister(id ConnID) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Lookup returns the connection registered under id.
func (r *Registry) Lookup(id ConnID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// MarkAlive records a heartbeat response from id.
func (r *Registry) MarkAlive(id ConnID) {
	if conn, ok := r.Lookup(id); ok {
		conn.alive.Store(true)
	}
}

// IsAlive reports the liveness flag of id. Unknown ids are not alive.
func (r *Registry) IsAlive(id ConnID) bool {
	conn, ok := r.Lookup(id)
	return ok && conn.alive.Load()
}

// Snapshot returns the registered connections in no particular order.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
