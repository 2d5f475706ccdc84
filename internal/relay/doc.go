// Package relay implements the room-based chat relay core: the connection
// registry, the room directory, the protocol router, the broadcast engine and
// the liveness monitor.
//
// All shared state is mutated from a single dispatcher goroutine owned by Hub.
// Transports talk to the hub through Connect, Receive, Pong and Disconnect and
// receive outbound frames through the Peer interface they implement.
package relay
