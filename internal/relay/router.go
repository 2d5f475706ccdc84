package relay

import (
	"time"

	"go.uber.org/zap"
)

// Router drives each connection's membership state machine from inbound
// frames and transport closes.
type Router struct {
	registry *Registry
	rooms    *Directory
	bcast    *Broadcaster
	log      *zap.Logger
	metrics  Metrics
	now      func() time.Time
}

// NewRouter wires a Router over the given registry, directory and broadcaster.
func NewRouter(registry *Registry, rooms *Directory, bcast *Broadcaster, log *zap.Logger, metrics Metrics) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Router{
		registry: registry,
		rooms:    rooms,
		bcast:    bcast,
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// HandleFrame decodes raw and applies it to the connection id. Malformed
// frames, unknown kinds and frames for unknown connections are dropped.
func (rt *Router) HandleFrame(id ConnID, raw []byte) {
	conn, ok := rt.registry.Lookup(id)
	if !ok {
		return
	}

	f, err := ParseFrame(raw)
	if err != nil {
		rt.log.Warn("drop malformed frame", zap.String("conn_id", string(id)), zap.Error(err))
		rt.metrics.IncMalformedFrames()
		return
	}

	switch f.Type {
	case KindJoin:
		rt.join(conn, f)
	case KindLeave:
		rt.leave(conn, f.Room, f.Sender, f.Timestamp)
	case KindMessage:
		rt.message(conn, f)
	default:
		rt.log.Debug("ignore frame", zap.String("conn_id", string(id)), zap.String("kind", string(f.Type)))
		return
	}
	rt.metrics.IncFrames(string(f.Type))
}

// HandleClose leaves every room the connection is still a member of and
// unregisters it. Calling it twice is harmless.
func (rt *Router) HandleClose(id ConnID) {
	conn, ok := rt.registry.Lookup(id)
	if !ok {
		return
	}

	timestamp := formatTimestamp(rt.now())
	for _, room := range rt.rooms.RoomsOf(id) {
		rt.leave(conn, room, conn.name, timestamp)
	}
	conn.room = ""

	rt.registry.Unregister(id)
	rt.metrics.SetConnections(rt.registry.Len())
	rt.log.Info("client disconnected", zap.String("conn_id", string(id)))
}

func (rt *Router) join(conn *Connection, f Frame) {
	if f.Room == "" {
		rt.log.Warn("drop join without room", zap.String("conn_id", string(conn.id)))
		return
	}
	if conn.room != "" && conn.room != f.Room {
		rt.leave(conn, conn.room, conn.name, f.Timestamp)
	}

	conn.name = f.Sender
	if !rt.rooms.Join(f.Room, conn) {
		return
	}
	conn.room = f.Room
	rt.metrics.SetRooms(rt.rooms.Len())
	rt.log.Info("joined room", zap.String("sender", f.Sender), zap.String("room", f.Room))

	rt.bcast.Broadcast(f.Room, systemNotice(f.Sender+" has joined the chat", f.Timestamp))
}

func (rt *Router) leave(conn *Connection, room, sender, timestamp string) {
	if !rt.rooms.Leave(room, conn) {
		return
	}
	if conn.room == room {
		conn.room = ""
	}
	if sender == "" {
		sender = conn.name
	}
	rt.log.Info("left room", zap.String("sender", sender), zap.String("room", room))

	rt.bcast.Broadcast(room, systemNotice(sender+" has left the chat", timestamp))

	if !rt.rooms.RoomExists(room) {
		rt.log.Info("room deleted", zap.String("room", room))
	}
	rt.metrics.SetRooms(rt.rooms.Len())
}

func (rt *Router) message(conn *Connection, f Frame) {
	if conn.room == "" || !rt.rooms.RoomExists(conn.room) {
		return
	}
	rt.log.Debug("chat message",
		zap.String("room", conn.room),
		zap.String("sender", f.Sender),
		zap.Int("length", len(f.Text)))

	rt.bcast.Broadcast(conn.room, chatEnvelope(f))
}
