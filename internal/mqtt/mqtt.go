// Package mqtt forwards bridge events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"nursecall_bridge/internal/models"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "nursecall"

// Client is the subset of broker operations the sink needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	IsConnected() bool
	Close() error
}

// Topic returns "{prefix}/{event}".
func Topic(prefix, event string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + event
}

// Payload is the JSON body published for each event.
type Payload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// FormatPayload renders an event for the broker.
func FormatPayload(ev models.BridgeEvent) ([]byte, error) {
	return json.Marshal(Payload{
		Event:     ev.Type,
		Timestamp: ev.OccurredAt.UTC().Format(time.RFC3339),
		Data:      ev.Data,
	})
}
