// Package server implements the HTTP and WebSocket transport for the chat relay.
//
// The implementation is organized into files for client pumps, the upgrade
// handler, origin policy, routing and HTTP server lifecycle. All chat state
// lives in the relay.Hub the handler is constructed with.
package server
