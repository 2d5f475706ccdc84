package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/relay"
)

// HealthBody is the static body served by HealthHandler.
const HealthBody = "RetroChat server is running"

// HandlerConfig configures the WebSocket handler.
type HandlerConfig struct {
	AllowedOrigins []string
	Client         ClientConfig
}

// Handler upgrades HTTP requests to WebSocket clients of a hub.
type Handler struct {
	hub      *relay.Hub
	upgrader websocket.Upgrader
	client   ClientConfig
	log      *zap.Logger

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

// NewHandler returns a Handler serving clients of hub.
func NewHandler(hub *relay.Hub, cfg HandlerConfig, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	origins := newOriginPolicy(cfg.AllowedOrigins, log)
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		client: cfg.Client,
		log:    log,
	}
}

// WebSocketHandler upgrades the request and serves the client until it
// disconnects. Only GET is accepted.
func (h *Handler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	if !h.acquire() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("addr", r.RemoteAddr), zap.Error(err))
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, h.client, h.log)
	if err := client.Serve(); err != nil && !errors.Is(err, relay.ErrHubStopped) {
		h.log.Error("serve client", zap.String("addr", r.RemoteAddr), zap.Error(err))
	}
}

// RootHandler serves WebSocket upgrades and health checks on the same path,
// since clients dial the bare server address.
func (h *Handler) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.WebSocketHandler(w, r)
		return
	}
	HealthHandler(w, r)
}

// StatsHandler reports connection and room counts as JSON.
func (h *Handler) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.hub.Stats()
	if err != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.log.Debug("write stats response", zap.Error(err))
	}
}

// acquire counts one more active client unless the handler is draining.
func (h *Handler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.wg.Add(1)
	return true
}

// Wait stops accepting new WebSocket clients and blocks until every client
// served by h has finished.
func (h *Handler) Wait() {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	h.wg.Wait()
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, HealthBody)
}
