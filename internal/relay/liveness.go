package relay

import (
	"time"

	"go.uber.org/zap"
)

// DefaultHeartbeatInterval is the time between liveness sweeps.
const DefaultHeartbeatInterval = 30 * time.Second

// Monitor reaps connections that stop answering heartbeat pings.
//
// Each sweep terminates connections whose flag is still cleared from the
// previous sweep, then clears the flag of the rest and pings them. A pong
// sets the flag again through Registry.MarkAlive.
type Monitor struct {
	registry *Registry
	router   *Router
	interval time.Duration
	log      *zap.Logger
	metrics  Metrics
}

// NewMonitor returns a Monitor sweeping every interval. A non-positive
// interval selects DefaultHeartbeatInterval.
func NewMonitor(registry *Registry, router *Router, interval time.Duration, log *zap.Logger, metrics Metrics) *Monitor {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Monitor{
		registry: registry,
		router:   router,
		interval: interval,
		log:      log,
		metrics:  metrics,
	}
}

// Interval returns the sweep period.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Sweep runs one liveness pass over every registered connection. A
// connection that misses a ping is dropped on the tick after that ping, so
// an unresponsive peer is reaped between one and two intervals after its
// last pong.
func (m *Monitor) Sweep() {
	for _, conn := range m.registry.Snapshot() {
		if !conn.alive.Load() {
			m.log.Info("terminate unresponsive connection", zap.String("conn_id", string(conn.id)))
			conn.peer.Terminate()
			m.metrics.IncLivenessTerminations()
			m.router.HandleClose(conn.id)
			continue
		}

		conn.alive.Store(false)
		if err := conn.peer.Ping(); err != nil {
			m.log.Debug("queue heartbeat", zap.String("conn_id", string(conn.id)), zap.Error(err))
		}
	}
}
