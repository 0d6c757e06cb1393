package mqtt

import (
	"sync"

	"nursecall_bridge/internal/logger"
	"nursecall_bridge/internal/models"
)

const defaultQueueSize = 64

// Sink publishes bridge events to {prefix}/{event}. Raw serial data is not
// forwarded. Publish only queues the event; a single goroutine talks to the
// broker. When the queue is full the event is dropped and logged.
type Sink struct {
	client Client
	prefix string
	qos    byte
	log    *logger.Logger

	mu     sync.RWMutex
	queue  chan models.BridgeEvent
	closed bool
	done   chan struct{}
}

func NewSink(client Client, prefix string, qos byte, log *logger.Logger) *Sink {
	return newSink(client, prefix, qos, log, defaultQueueSize)
}

func newSink(client Client, prefix string, qos byte, log *logger.Logger, size int) *Sink {
	s := &Sink{
		client: client,
		prefix: prefix,
		qos:    qos,
		log:    log,
		queue:  make(chan models.BridgeEvent, size),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sink) Publish(ev models.BridgeEvent) {
	if ev.Type == models.EventRawData {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- ev:
	default:
		if s.log != nil {
			s.log.Warnw("mqtt_queue_full", "type", ev.Type)
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (s *Sink) IsConnected() bool {
	return s.client.IsConnected()
}

// Close publishes what is already queued, then disconnects the client.
func (s *Sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
	return s.client.Close()
}

func (s *Sink) run() {
	defer close(s.done)
	for ev := range s.queue {
		s.send(ev)
	}
}

func (s *Sink) send(ev models.BridgeEvent) {
	payload, err := FormatPayload(ev)
	if err != nil {
		if s.log != nil {
			s.log.Warnw("mqtt_format_failed", "err", err, "type", ev.Type)
		}
		return
	}
	topic := Topic(s.prefix, ev.Type)
	if err := s.client.Publish(topic, s.qos, false, payload); err != nil && s.log != nil {
		s.log.Warnw("mqtt_publish_failed", "err", err, "topic", topic)
	}
}
