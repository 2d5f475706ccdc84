package relay

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	mu         sync.Mutex
	sent       [][]byte
	pings      int
	terminated bool
	sendErr    error
}

func (p *fakePeer) Send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return ErrConnectionClosed
	}
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, payload)
	return nil
}

func (p *fakePeer) Ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
	return nil
}

func (p *fakePeer) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated = true
}

func (p *fakePeer) envelopes(t *testing.T) []Envelope {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Envelope, 0, len(p.sent))
	for _, raw := range p.sent {
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		out = append(out, env)
	}
	return out
}

func (p *fakePeer) pingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pings
}

func (p *fakePeer) isTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// fixture wires the core components without a dispatcher goroutine.
type fixture struct {
	registry *Registry
	rooms    *Directory
	router   *Router
	monitor  *Monitor
}

func newFixture() *fixture {
	registry := NewRegistry()
	rooms := NewDirectory()
	router := NewRouter(registry, rooms, NewBroadcaster(rooms, nil, nil), nil, nil)
	return &fixture{
		registry: registry,
		rooms:    rooms,
		router:   router,
		monitor:  NewMonitor(registry, router, 0, nil, nil),
	}
}

func (f *fixture) connect() (ConnID, *fakePeer) {
	peer := &fakePeer{}
	return f.registry.Register(peer).ID(), peer
}

func frame(t *testing.T, fr Frame) []byte {
	t.Helper()
	raw, err := json.Marshal(fr)
	require.NoError(t, err)
	return raw
}

func joinFrame(t *testing.T, sender, room string) []byte {
	return frame(t, Frame{Type: KindJoin, Sender: sender, Room: room, Timestamp: "2024-01-01T00:00:00.000Z"})
}

func leaveFrame(t *testing.T, sender, room string) []byte {
	return frame(t, Frame{Type: KindLeave, Sender: sender, Room: room, Timestamp: "2024-01-01T00:00:01.000Z"})
}

func messageFrame(t *testing.T, sender, text string) []byte {
	return frame(t, Frame{Type: KindMessage, Sender: sender, Text: text, Timestamp: "2024-01-01T00:00:02.000Z"})
}
