// Package stream serves simulated best prices to WebSocket clients.
//
// A Hub consumes price changes from a feed buffer and broadcasts each one as
// a JSON text message to every connected client. Clients are write-only
// subscribers: anything they send is discarded. A client whose send queue is
// full misses messages rather than slowing the hub down.
package stream
