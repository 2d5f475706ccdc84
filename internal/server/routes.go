package server

import (
	"net/http"

	"github.com/rs/cors"
)

// SetupRoutes configures the application routes: health and WebSocket on
// exactly "/", WebSocket on "/ws", JSON stats on "/stats" and metrics on "/metrics".
// Plain HTTP routes are wrapped with CORS for allowedOrigins.
func SetupRoutes(h *Handler, metrics http.Handler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.RootHandler)
	mux.HandleFunc("/ws", h.WebSocketHandler)
	mux.HandleFunc("GET /stats", h.StatsHandler)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)
}
