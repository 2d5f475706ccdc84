package relay

// Metrics receives counters and gauges from the relay core.
type Metrics interface {
	SetConnections(count int)
	SetRooms(count int)
	IncFrames(kind string)
	IncMalformedFrames()
	IncDelivered()
	IncDropped()
	IncLivenessTerminations()
}

// NoopMetrics discards everything. It is the default.
type NoopMetrics struct{}

// SetConnections does nothing.
func (NoopMetrics) SetConnections(int) {}

// SetRooms does nothing.
func (NoopMetrics) SetRooms(int) {}

// IncFrames does nothing.
func (NoopMetrics) IncFrames(string) {}

// IncMalformedFrames does nothing.
func (NoopMetrics) IncMalformedFrames() {}

// IncDelivered does nothing.
func (NoopMetrics) IncDelivered() {}

// IncDropped does nothing.
func (NoopMetrics) IncDropped() {}

// IncLivenessTerminations does nothing.
func (NoopMetrics) IncLivenessTerminations() {}
