// Package metrics exports relay counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

// Collector implements relay.Metrics on top of Prometheus collectors.
type Collector struct {
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	frames      *prometheus.CounterVec
	malformed   prometheus.Counter
	delivered   prometheus.Counter
	dropped     prometheus.Counter
	reaped      prometheus.Counter
}

// New registers the relay collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Currently registered connections.",
		}),
		rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Inbound frames handled, by kind.",
		}, []string{"kind"}),
		malformed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Inbound frames that could not be decoded.",
		}),
		delivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Envelopes queued on a recipient.",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_deliveries_total",
			Help:      "Envelopes skipped because the recipient was closed or full.",
		}),
		reaped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liveness_terminations_total",
			Help:      "Connections closed for missing heartbeat pongs.",
		}),
	}
}

// SetConnections records the number of registered connections.
func (c *Collector) SetConnections(count int) { c.connections.Set(float64(count)) }

// SetRooms records the number of live rooms.
func (c *Collector) SetRooms(count int) { c.rooms.Set(float64(count)) }

// IncFrames counts one well-formed inbound frame of the given kind.
func (c *Collector) IncFrames(kind string) { c.frames.WithLabelValues(kind).Inc() }

// IncMalformedFrames counts one inbound frame that failed to parse.
func (c *Collector) IncMalformedFrames() { c.malformed.Inc() }

// IncDelivered counts one envelope handed to a recipient.
func (c *Collector) IncDelivered() { c.delivered.Inc() }

// IncDropped counts one envelope skipped for a closed or full recipient.
func (c *Collector) IncDropped() { c.dropped.Inc() }

// IncLivenessTerminations counts one connection closed by the liveness monitor.
func (c *Collector) IncLivenessTerminations() { c.reaped.Inc() }

// Handler exposes everything gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
