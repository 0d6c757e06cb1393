package models

import "time"

// Event names published by the bridge.
const (
	EventDeviceConnected    = "device-connected"
	EventDeviceDisconnected = "device-disconnected"
	EventRawData            = "raw-data"
	EventDeviceError        = "device-error"
	EventStandbyOK          = "standby-ok"
	EventCallTriggered      = "call-triggered"
	EventCallResolved       = "call-resolved"
)

// BridgeEvent is a single outward notification.
type BridgeEvent struct {
	Type       string    `json:"type"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"time"`
}

// CallTriggered is the payload of EventCallTriggered.
type CallTriggered struct {
	Code    string   `json:"code"`
	Room    string   `json:"room"`
	Bed     string   `json:"bed"`
	Display string   `json:"display"`
	Files   []string `json:"files"`
}

// CallResolved is the payload of EventCallResolved.
type CallResolved struct {
	Code    string `json:"code"`
	Room    string `json:"room"`
	Bed     string `json:"bed"`
	Display string `json:"display"`
}

// LogEntry is a persisted bridge event, as listed by the logs endpoint.
type LogEntry struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
