package stream

import (
	"errors"
	"time"
)

// ErrHubClosed is returned to clients connecting after Close.
var ErrHubClosed = errors.New("hub closed")

// Config holds hub settings.
type Config struct {
	WriteTimeout time.Duration // Per-message write deadline
	PingInterval time.Duration // Keepalive ping period; pongs must arrive within two periods
	ClientBuffer int           // Queued messages per client
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		PingInterval: 15 * time.Second,
		ClientBuffer: 256,
	}
}

// HubStats contains hub statistics.
type HubStats struct {
	Clients   int
	Broadcast int64
	Dropped   int64
}
