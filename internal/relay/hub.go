package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultEventQueueSize = 1024

// Stats is a point-in-time view of the hub.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// Hub owns the relay state and serializes every operation on it through a
// single dispatcher goroutine started by Run.
type Hub struct {
	registry *Registry
	rooms    *Directory
	router   *Router
	monitor  *Monitor
	log      *zap.Logger
	metrics  Metrics

	events   chan func()
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

type hubOptions struct {
	log       *zap.Logger
	metrics   Metrics
	heartbeat time.Duration
	queueSize int
}

// Option configures a Hub.
type Option func(*hubOptions)

// WithLogger sets the logger used by every component of the hub.
func WithLogger(log *zap.Logger) Option {
	return func(o *hubOptions) {
		o.log = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(o *hubOptions) {
		o.metrics = metrics
	}
}

// WithHeartbeatInterval sets the liveness sweep period.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(o *hubOptions) {
		o.heartbeat = interval
	}
}

// WithEventQueueSize sets the capacity of the dispatcher's inbound queue.
func WithEventQueueSize(size int) Option {
	return func(o *hubOptions) {
		o.queueSize = size
	}
}

// NewHub builds a hub with empty registry and directory. Call Run to start it.
func NewHub(opts ...Option) *Hub {
	o := hubOptions{
		log:       zap.NewNop(),
		metrics:   NoopMetrics{},
		heartbeat: DefaultHeartbeatInterval,
		queueSize: defaultEventQueueSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = NoopMetrics{}
	}
	if o.queueSize <= 0 {
		o.queueSize = defaultEventQueueSize
	}

	registry := NewRegistry()
	rooms := NewDirectory()
	bcast := NewBroadcaster(rooms, o.log, o.metrics)
	router := NewRouter(registry, rooms, bcast, o.log, o.metrics)

	return &Hub{
		registry: registry,
		rooms:    rooms,
		router:   router,
		monitor:  NewMonitor(registry, router, o.heartbeat, o.log, o.metrics),
		log:      o.log,
		metrics:  o.metrics,
		events:   make(chan func(), o.queueSize),
		done:     make(chan struct{}),
	}
}

// Run dispatches events and liveness sweeps until ctx is cancelled. On return
// every remaining peer is terminated and all state is dropped.
func (h *Hub) Run(ctx context.Context) error {
	if !h.running.CompareAndSwap(false, true) {
		return ErrHubRunning
	}
	defer h.stop()

	ticker := time.NewTicker(h.monitor.Interval())
	defer ticker.Stop()

	h.log.Info("hub started", zap.Duration("heartbeat_interval", h.monitor.Interval()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-h.events:
			fn()
		case <-ticker.C:
			h.monitor.Sweep()
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		conns := h.registry.Snapshot()
		for _, conn := range conns {
			conn.peer.Terminate()
			h.registry.Unregister(conn.id)
		}
		h.rooms.Clear()
		h.metrics.SetConnections(0)
		h.metrics.SetRooms(0)
		h.log.Info("hub stopped", zap.Int("closed_connections", len(conns)))
	})
}

func (h *Hub) submit(fn func()) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.events <- fn:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Connect registers peer and returns its new identity.
func (h *Hub) Connect(peer Peer) (ConnID, error) {
	reply := make(chan ConnID, 1)
	err := h.submit(func() {
		conn := h.registry.Register(peer)
		h.metrics.SetConnections(h.registry.Len())
		h.log.Info("client connected", zap.String("conn_id", string(conn.id)))
		reply <- conn.id
	})
	if err != nil {
		return "", err
	}

	select {
	case id := <-reply:
		return id, nil
	case <-h.done:
		return "", ErrHubStopped
	}
}

// Receive hands one raw inbound frame from id to the router.
func (h *Hub) Receive(id ConnID, raw []byte) error {
	return h.submit(func() {
		h.router.HandleFrame(id, raw)
	})
}

// Pong records a heartbeat response from id.
func (h *Hub) Pong(id ConnID) error {
	return h.submit(func() {
		h.registry.MarkAlive(id)
	})
}

// Disconnect reports that id's transport has closed.
func (h *Hub) Disconnect(id ConnID) error {
	return h.submit(func() {
		h.router.HandleClose(id)
	})
}

// Stats returns connection and room counts. Because it is answered by the
// dispatcher, every event submitted before the call has been applied.
func (h *Hub) Stats() (Stats, error) {
	reply := make(chan Stats, 1)
	err := h.submit(func() {
		reply <- Stats{Connections: h.registry.Len(), Rooms: h.rooms.Len()}
	})
	if err != nil {
		return Stats{}, err
	}

	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return Stats{}, ErrHubStopped
	}
}

// RoomExists reports, through the dispatcher, whether room has members.
func (h *Hub) RoomExists(room string) (bool, error) {
	reply := make(chan bool, 1)
	if err := h.submit(func() { reply <- h.rooms.RoomExists(room) }); err != nil {
		return false, err
	}

	select {
	case ok := <-reply:
		return ok, nil
	case <-h.done:
		return false, ErrHubStopped
	}
}
