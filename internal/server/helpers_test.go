package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/relay"
	"github.com/Tyrowin/roomchat/internal/server"
)

type testEnv struct {
	server  *httptest.Server
	hub     *relay.Hub
	handler *server.Handler
	wsURL   string
	// stop cancels the hub's run context.
	stop context.CancelFunc
}

// newTestEnv starts a hub and an httptest server with the application routes.
func newTestEnv(t *testing.T, origins []string, opts ...relay.Option) *testEnv {
	t.Helper()

	hub := relay.NewHub(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	handler := server.NewHandler(hub, server.HandlerConfig{
		AllowedOrigins: origins,
		Client:         server.ClientConfig{SendQueueSize: 64, MaxMessageSize: 4096},
	}, zap.NewNop())
	srv := httptest.NewServer(server.SetupRoutes(handler, nil, origins))

	t.Cleanup(func() {
		cancel()
		handler.Wait()
		srv.Close()
	})

	return &testEnv{
		server:  srv,
		hub:     hub,
		handler: handler,
		wsURL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		stop:    cancel,
	}
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, f relay.Frame) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(f))
}

func join(t *testing.T, conn *websocket.Conn, sender, room string) {
	t.Helper()
	sendFrame(t, conn, relay.Frame{Type: relay.KindJoin, Sender: sender, Room: room, Timestamp: "2024-01-01T00:00:00.000Z"})
}

func readEnvelope(t *testing.T, conn *websocket.Conn) relay.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env relay.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// readUntil reads envelopes until one has the wanted text.
func readUntil(t *testing.T, conn *websocket.Conn, text string) relay.Envelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var env relay.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Text == text {
			return env
		}
	}
	t.Fatalf("did not receive %q", text)
	return relay.Envelope{}
}

func expectNoEnvelope(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	var env relay.Envelope
	err := conn.ReadJSON(&env)
	require.Error(t, err, "unexpected envelope %+v", env)
}
