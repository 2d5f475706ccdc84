package relay

import "errors"

var (
	// ErrConnectionClosed is returned by a Peer whose transport has gone away.
	ErrConnectionClosed = errors.New("relay: connection closed")
	// ErrSendBufferFull is returned by a Peer whose outbound queue is full.
	ErrSendBufferFull = errors.New("relay: send buffer full")
	// ErrHubStopped is returned when an event is submitted after Run returned.
	ErrHubStopped = errors.New("relay: hub stopped")
	// ErrHubRunning is returned by Run when the hub is already running.
	ErrHubRunning = errors.New("relay: hub already running")
	// ErrMalformedFrame wraps decoding failures of inbound frames.
	ErrMalformedFrame = errors.New("relay: malformed frame")
)
