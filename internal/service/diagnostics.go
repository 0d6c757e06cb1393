package service

// MQTT connection states reported in HealthReport.
const (
	MQTTConnected    = "connected"
	MQTTDisconnected = "disconnected"
)

// ConnChecker is implemented by sinks that hold a broker connection.
type ConnChecker interface {
	IsConnected() bool
}

// HealthReport is returned by GET /health next to the liveness status.
type HealthReport struct {
	StreamClients int    `json:"stream_clients"`
	MQTT          string `json:"mqtt,omitempty"`
}

type diagnostics struct {
	hub  *Hub
	mqtt ConnChecker
}

func (d *diagnostics) Report() HealthReport {
	r := HealthReport{StreamClients: d.hub.Subscribers()}
	if d.mqtt != nil {
		r.MQTT = MQTTDisconnected
		if d.mqtt.IsConnected() {
			r.MQTT = MQTTConnected
		}
	}
	return r
}
