package models

import "time"

// Connection states of the serial link.
const (
	LinkDisconnected = "disconnected"
	LinkOpening      = "opening"
	LinkConnected    = "connected"
	LinkStopped      = "stopped"
)

// LinkStatus is the live view of the connection manager.
type LinkStatus struct {
	State string `json:"state"`
	Port  string `json:"port,omitempty"`
}

// LinkState is the persisted single-row record of the last requested port.
type LinkState struct {
	ID            int       `json:"id"`
	Port          string    `json:"port"`
	AutoReconnect bool      `json:"auto_reconnect"`
	UpdatedAt     time.Time `json:"updated_at"`
}
