package relay

// Peer is the transport side of a connection as seen by the relay core.
//
// Implementations must never block: Send and Ping enqueue work for the
// transport's own writer and report ErrSendBufferFull or ErrConnectionClosed
// instead of waiting.
type Peer interface {
	// Send queues one serialized frame for delivery.
	Send(payload []byte) error
	// Ping queues a transport-level heartbeat ping.
	Ping() error
	// Terminate closes the transport immediately.
	Terminate()
}
