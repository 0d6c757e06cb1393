package service

import (
	"context"
	"io"
	"time"

	"nursecall_bridge/internal/debounce"
	"nursecall_bridge/internal/device"
	"nursecall_bridge/internal/logger"
	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/repository"
)

// Bridge manages the serial link to the nurse-call panel.
type Bridge interface {
	ListPorts() []string
	Connect(ctx context.Context, port string) error
	Disconnect(ctx context.Context) error
	Status() models.LinkStatus
}

// Calls exposes operator commands on the call history.
type Calls interface {
	EncloseLatest(ctx context.Context) (models.CallRecord, error)
	EncloseAll(ctx context.Context) (int, error)
	History(ctx context.Context, status string) ([]models.CallRecord, error)
	Export(ctx context.Context, status string, w io.Writer) error
}

// Master exposes the master directory and the raw application document.
type Master interface {
	Directory(ctx context.Context) (MasterView, error)
	ReplaceDocument(ctx context.Context, raw []byte) error
}

// EventLog exposes the persisted bridge events with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.LogEntry, error)
}

// Events streams live bridge events.
type Events interface {
	Subscribe() (<-chan models.BridgeEvent, func())
}

// Diagnostics reports the state of the outward channels.
type Diagnostics interface {
	Report() HealthReport
}

// Service aggregates the sub-services used by the HTTP layer.
type Service struct {
	Bridge
	Calls
	Master
	EventLog
	Events
	Diagnostics
}

// Deps are the non-repository collaborators of NewService.
type Deps struct {
	Opener device.Opener
	// Sinks receive every event in addition to the websocket hub and the event log.
	Sinks []Publisher
	// MQTT is the broker sink, if one is configured. It is reported by Diagnostics.
	MQTT   ConnChecker
	Bridge BridgeConfig
	Log    *logger.Logger
	Now    func() time.Time
}

// NewService wires the repository layer into concrete services. The
// returned BridgeService is also exposed for lifecycle control in main.
func NewService(repos *repository.Repository, deps Deps) (*Service, *BridgeService) {
	hub := NewHub()
	sink := Fanout{hub, NewEventRecorder(repos.EventRepo, deps.Log.Named("events"))}
	for _, s := range deps.Sinks {
		sink = append(sink, s)
	}

	ledger := debounce.New(deps.Now)
	bridge := NewBridgeService(
		deps.Opener,
		repos.Calls,
		repos.LinkState,
		sink,
		ledger,
		deps.Bridge,
		deps.Log.Named("bridge"),
	)
	if deps.Now != nil {
		bridge.now = deps.Now
	}
	calls := NewCallService(repos.Calls, sink)
	if deps.Now != nil {
		calls.now = deps.Now
	}

	return &Service{
		Bridge:   bridge,
		Calls:    calls,
		Master:   NewMasterService(repos.Master, repos.Document),
		EventLog: NewEventLogService(repos.EventRepo),
		Events:   hub,
		Diagnostics: &diagnostics{
			hub:  hub,
			mqtt: deps.MQTT,
		},
	}, bridge
}
