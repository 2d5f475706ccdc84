package server_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/relay"
)

func TestJoinAnnouncementEchoesToSelf(t *testing.T) {
	env := newTestEnv(t, nil)
	a := dial(t, env.wsURL, nil)

	join(t, a, "A", "General")

	assert.Equal(t, relay.Envelope{
		Type:      relay.KindMessage,
		Sender:    relay.SystemSender,
		Text:      "A has joined the chat",
		Timestamp: "2024-01-01T00:00:00.000Z",
		System:    true,
	}, readEnvelope(t, a))
}

func TestMessageReachesAllMembersIncludingSender(t *testing.T) {
	env := newTestEnv(t, nil)
	a := dial(t, env.wsURL, nil)
	b := dial(t, env.wsURL+"/ws", nil)

	join(t, a, "A", "General")
	readUntil(t, a, "A has joined the chat")
	join(t, b, "B", "General")
	readUntil(t, a, "B has joined the chat")
	readUntil(t, b, "B has joined the chat")

	sendFrame(t, a, relay.Frame{Type: relay.KindMessage, Sender: "A", Text: "hi", Timestamp: "t1"})

	want := relay.Envelope{Type: relay.KindMessage, Sender: "A", Text: "hi", Timestamp: "t1"}
	assert.Equal(t, want, readEnvelope(t, a))
	assert.Equal(t, want, readEnvelope(t, b))
}

func TestRoomsAreIsolated(t *testing.T) {
	env := newTestEnv(t, nil)
	a := dial(t, env.wsURL, nil)
	b := dial(t, env.wsURL, nil)

	join(t, a, "A", "General")
	readUntil(t, a, "A has joined the chat")
	join(t, b, "B", "Random")
	readUntil(t, b, "B has joined the chat")

	sendFrame(t, b, relay.Frame{Type: relay.KindMessage, Sender: "B", Text: "psst", Timestamp: "t"})
	readUntil(t, b, "psst")

	expectNoEnvelope(t, a, 150*time.Millisecond)
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	env := newTestEnv(t, nil)
	a := dial(t, env.wsURL, nil)
	b := dial(t, env.wsURL, nil)

	join(t, a, "A", "General")
	readUntil(t, a, "A has joined the chat")
	join(t, b, "B", "General")
	readUntil(t, b, "B has joined the chat")

	sendFrame(t, b, relay.Frame{Type: relay.KindLeave, Sender: "B", Room: "General", Timestamp: "t"})

	left := readUntil(t, a, "B has left the chat")
	assert.True(t, left.System)
	expectNoEnvelope(t, b, 150*time.Millisecond)
}

func TestSoleMemberLeaveDeletesRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	a := dial(t, env.wsURL, nil)

	join(t, a, "A", "General")
	readUntil(t, a, "A has joined the chat")
	exists, err := env.hub.RoomExists("General")
	require.NoError(t, err)
	require.True(t, exists)

	sendFrame(t, a, relay.Frame{Type: relay.KindLeave, Sender: "A", Room: "General", Timestamp: "t"})

	require.Eventually(t, func() bool {
		exists, err := env.hub.RoomExists("General")
		return err == nil && !exists
	}, time.Second, 10*time.Millisecond)
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	env := newTestEnv(t, nil)
	a := dial(t, env.wsURL, nil)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("{definitely not json")))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"wave","sender":"A"}`)))
	join(t, a, "A", "General")

	assert.Equal(t, "A has joined the chat", readEnvelope(t, a).Text)
}

func TestDisconnectCleansUpMembership(t *testing.T) {
	env := newTestEnv(t, nil)
	a := dial(t, env.wsURL, nil)
	b := dial(t, env.wsURL, nil)

	join(t, a, "A", "General")
	readUntil(t, a, "A has joined the chat")
	join(t, b, "B", "General")
	readUntil(t, a, "B has joined the chat")

	require.NoError(t, b.Close())

	left := readUntil(t, a, "B has left the chat")
	assert.Equal(t, relay.SystemSender, left.Sender)

	require.Eventually(t, func() bool {
		stats, err := env.hub.Stats()
		return err == nil && stats.Connections == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUnresponsiveClientIsReaped(t *testing.T) {
	env := newTestEnv(t, nil, relay.WithHeartbeatInterval(50*time.Millisecond))
	a := dial(t, env.wsURL, nil)
	silent := dial(t, env.wsURL, nil)

	join(t, a, "A", "General")
	readUntil(t, a, "A has joined the chat")
	join(t, silent, "S", "General")

	// The silent client never reads, so it never answers pings. A keeps
	// reading, which lets gorilla answer its pings.
	readUntil(t, a, "S has left the chat")

	stats, err := env.hub.Stats()
	require.NoError(t, err)
	assert.Equal(t, relay.Stats{Connections: 1, Rooms: 1}, stats)
}

func TestDisallowedOriginIsRejected(t *testing.T) {
	env := newTestEnv(t, []string{"http://allowed.example"})

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	_, resp, err := dialer.Dial(env.wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://ALLOWED.example")
	dial(t, env.wsURL, header)
	dial(t, env.wsURL, nil)
}

func TestHubStopSendsNormalClosure(t *testing.T) {
	env := newTestEnv(t, nil)
	a := dial(t, env.wsURL, nil)
	join(t, a, "A", "General")
	readUntil(t, a, "A has joined the chat")

	env.stop()

	require.NoError(t, a.SetReadDeadline(time.Now().Add(3*time.Second)))
	var err error
	for err == nil {
		_, _, err = a.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestDialDuringShutdownIsSafe(t *testing.T) {
	env := newTestEnv(t, nil)
	env.stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
			conn, resp, err := dialer.Dial(env.wsURL, nil)
			if resp != nil {
				_ = resp.Body.Close()
			}
			if err == nil {
				_ = conn.Close()
			}
		}()
	}
	env.handler.Wait()
	wg.Wait()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	_, resp, err := dialer.Dial(env.wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
