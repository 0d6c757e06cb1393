package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nursecall_bridge/internal/logger"
	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/repository"
)

// Publisher receives bridge events. Publish must not block for long; it is
// called from the serial read loop.
type Publisher interface {
	Publish(ev models.BridgeEvent)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ev models.BridgeEvent)

func (f PublisherFunc) Publish(ev models.BridgeEvent) { f(ev) }

// Fanout delivers each event to every publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ev models.BridgeEvent) {
	for _, p := range f {
		if p != nil {
			p.Publish(ev)
		}
	}
}

// Hub broadcasts events to websocket subscribers. A subscriber that falls
// behind loses events rather than stalling the bridge.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan models.BridgeEvent]struct{}
	size int
}

const defaultHubBuffer = 64

func NewHub() *Hub {
	return &Hub{subs: make(map[chan models.BridgeEvent]struct{}), size: defaultHubBuffer}
}

// Subscribe registers a listener. The returned cancel func unregisters it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan models.BridgeEvent, func()) {
	ch := make(chan models.BridgeEvent, h.size)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev models.BridgeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of active listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

const recordTimeout = 2 * time.Second

// EventRecorder appends lifecycle and call events to the SQLite log.
// Raw data and standby pulses are too frequent to keep.
type EventRecorder struct {
	repo repository.EventRepo
	log  *logger.Logger
}

func NewEventRecorder(repo repository.EventRepo, log *logger.Logger) *EventRecorder {
	return &EventRecorder{repo: repo, log: log}
}

func (r *EventRecorder) Publish(ev models.BridgeEvent) {
	if ev.Type == models.EventRawData || ev.Type == models.EventStandbyOK {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	entry := models.LogEntry{
		OccurredAt:  ev.OccurredAt,
		Type:        ev.Type,
		Description: describe(ev),
		Metadata:    ev.Data,
	}
	if err := r.repo.Append(ctx, entry); err != nil && r.log != nil {
		r.log.Warnw("event_log_append_failed", "err", err, "type", ev.Type)
	}
}

func describe(ev models.BridgeEvent) string {
	switch d := ev.Data.(type) {
	case models.CallTriggered:
		return "call from " + d.Display
	case models.CallResolved:
		return "call resolved at " + d.Display
	case string:
		switch ev.Type {
		case models.EventDeviceConnected:
			return "connected to " + d
		case models.EventDeviceError:
			return d
		}
		return fmt.Sprintf("%s: %s", ev.Type, d)
	}
	switch ev.Type {
	case models.EventDeviceDisconnected:
		return "device disconnected"
	}
	return ev.Type
}
