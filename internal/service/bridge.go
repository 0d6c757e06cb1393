package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nursecall_bridge/internal/debounce"
	"nursecall_bridge/internal/device"
	"nursecall_bridge/internal/logger"
	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/protocol"
	"nursecall_bridge/internal/repository"
)

var (
	// ErrBridgeClosed is returned by Connect after Close.
	ErrBridgeClosed = errors.New("bridge closed")
	ErrPortRequired = errors.New("port is required")
)

const readBufferSize = 1024

// BridgeConfig tunes the connection loop. Zero values fall back to defaults.
type BridgeConfig struct {
	OpenBackoff      time.Duration
	ReconnectBackoff time.Duration
	LineBuffering    bool
	CallWindow       time.Duration
	ErrorWindow      time.Duration
}

// Default timings of the connection loop.
const (
	DefaultOpenBackoff      = 1000 * time.Millisecond
	DefaultReconnectBackoff = 800 * time.Millisecond
	DefaultCallWindow       = 1500 * time.Millisecond
	DefaultErrorWindow      = 3000 * time.Millisecond
)

func (c BridgeConfig) withDefaults() BridgeConfig {
	if c.OpenBackoff <= 0 {
		c.OpenBackoff = DefaultOpenBackoff
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = DefaultReconnectBackoff
	}
	if c.CallWindow <= 0 {
		c.CallWindow = DefaultCallWindow
	}
	if c.ErrorWindow <= 0 {
		c.ErrorWindow = DefaultErrorWindow
	}
	return c
}

// BridgeService owns the serial device. At most one worker goroutine runs
// at a time; Connect and Disconnect wait for the previous one to exit.
type BridgeService struct {
	opener device.Opener
	calls  repository.CallHistory
	links  repository.LinkStateRepo
	sink   Publisher
	ledger *debounce.Ledger
	cfg    BridgeConfig
	log    *logger.Logger
	now    func() time.Time

	// ctl serializes Connect/Disconnect/Close.
	ctl    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool

	mu     sync.RWMutex
	status models.LinkStatus
}

var _ Bridge = (*BridgeService)(nil)

// NewBridgeService wires the connection manager. links may be nil.
func NewBridgeService(
	opener device.Opener,
	calls repository.CallHistory,
	links repository.LinkStateRepo,
	sink Publisher,
	ledger *debounce.Ledger,
	cfg BridgeConfig,
	log *logger.Logger,
) *BridgeService {
	if sink == nil {
		sink = Fanout(nil)
	}
	if ledger == nil {
		ledger = debounce.New(nil)
	}
	return &BridgeService{
		opener: opener,
		calls:  calls,
		links:  links,
		sink:   sink,
		ledger: ledger,
		cfg:    cfg.withDefaults(),
		log:    log,
		now:    time.Now,
		status: models.LinkStatus{State: models.LinkDisconnected},
	}
}

func (b *BridgeService) ListPorts() []string {
	ports := b.opener.List()
	if ports == nil {
		return []string{}
	}
	return ports
}

// Connect stops any running worker and starts a new one for port. Failing
// to open the device is not an error here; the worker keeps retrying.
func (b *BridgeService) Connect(ctx context.Context, port string) error {
	port = strings.TrimSpace(port)
	if port == "" {
		return ErrPortRequired
	}

	b.ctl.Lock()
	defer b.ctl.Unlock()
	if b.closed {
		return ErrBridgeClosed
	}
	b.stopLocked()
	// An explicit connect reports the first open failure right away.
	b.ledger.Forget(debounce.OpenErrorKey(port))

	wctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.cancel, b.done = cancel, done
	b.setStatus(models.LinkOpening, port)
	go func() {
		defer close(done)
		b.run(wctx, port)
	}()

	b.saveLink(ctx, port, true)
	if b.log != nil {
		b.log.Infow("bridge_connect", "port", port)
	}
	return nil
}

// Disconnect stops the worker and waits until the device is released.
func (b *BridgeService) Disconnect(ctx context.Context) error {
	b.ctl.Lock()
	defer b.ctl.Unlock()

	port := b.Status().Port
	b.stopLocked()
	if port != "" {
		b.saveLink(ctx, port, false)
	}
	return nil
}

// Close stops the worker for good. Later Connect calls fail with
// ErrBridgeClosed. The persisted auto-reconnect flag is left untouched so
// the next process start resumes the link.
func (b *BridgeService) Close() {
	b.ctl.Lock()
	defer b.ctl.Unlock()
	b.stopLocked()
	b.closed = true
}

// Resume reconnects to the last port if the operator left it connected.
func (b *BridgeService) Resume(ctx context.Context) (string, error) {
	if b.links == nil {
		return "", nil
	}
	st, err := b.links.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load link state: %w", err)
	}
	if !st.AutoReconnect || st.Port == "" {
		return "", nil
	}
	return st.Port, b.Connect(ctx, st.Port)
}

func (b *BridgeService) Status() models.LinkStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

func (b *BridgeService) stopLocked() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
	b.cancel, b.done = nil, nil
	b.setStatus(models.LinkStopped, "")
}

func (b *BridgeService) setStatus(state, port string) {
	b.mu.Lock()
	b.status = models.LinkStatus{State: state, Port: port}
	b.mu.Unlock()
}

func (b *BridgeService) saveLink(ctx context.Context, port string, auto bool) {
	if b.links == nil {
		return
	}
	err := b.links.Save(ctx, models.LinkState{Port: port, AutoReconnect: auto, UpdatedAt: b.now()})
	if err != nil && b.log != nil {
		b.log.Warnw("link_state_save_failed", "err", err, "port", port)
	}
}

func (b *BridgeService) emit(typ string, data any) {
	b.sink.Publish(models.BridgeEvent{Type: typ, Data: data, OccurredAt: b.now().UTC()})
}

// run is the worker: open, read until error or stop, back off, repeat.
func (b *BridgeService) run(ctx context.Context, port string) {
	var tracker CallTracker
	dec := protocol.NewDecoder(b.cfg.LineBuffering)

	for ctx.Err() == nil {
		b.setStatus(models.LinkOpening, port)
		p, err := b.opener.Open(port)
		if err != nil {
			b.setStatus(models.LinkDisconnected, port)
			if b.ledger.ShouldEmit(debounce.OpenErrorKey(port), b.cfg.ErrorWindow) {
				if b.log != nil {
					b.log.Warnw("serial_open_failed", "err", err, "port", port)
				}
				b.emit(models.EventDeviceError, fmt.Sprintf("%v (retrying)", err))
			}
			if !sleepCtx(ctx, b.cfg.OpenBackoff) {
				break
			}
			continue
		}

		tracker.Reset()
		dec.Reset()
		b.setStatus(models.LinkConnected, port)
		if b.log != nil {
			b.log.Infow("serial_connected", "port", port)
		}
		b.emit(models.EventDeviceConnected, port)

		readErr := b.readLoop(ctx, p, &tracker, dec)
		if err := p.Close(); err != nil && b.log != nil {
			b.log.Warnw("serial_close_failed", "err", err, "port", port)
		}
		b.emit(models.EventDeviceDisconnected, nil)
		if ctx.Err() != nil {
			break
		}

		b.setStatus(models.LinkDisconnected, port)
		if b.log != nil {
			b.log.Warnw("serial_disconnected", "err", readErr, "port", port)
		}
		if !sleepCtx(ctx, b.cfg.ReconnectBackoff) {
			break
		}
	}
}

func (b *BridgeService) readLoop(ctx context.Context, p device.Port, tracker *CallTracker, dec *protocol.Decoder) error {
	buf := make([]byte, readBufferSize)
	for ctx.Err() == nil {
		n, err := p.Read(buf)
		if device.IsTimeout(n, err) {
			continue
		}
		if n > 0 {
			b.handleChunk(ctx, buf[:n], tracker, dec)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *BridgeService) handleChunk(ctx context.Context, chunk []byte, tracker *CallTracker, dec *protocol.Decoder) {
	b.emit(models.EventRawData, strings.ToValidUTF8(string(chunk), "\uFFFD"))

	for _, ev := range dec.Feed(chunk) {
		switch {
		case ev.Kind == protocol.StandbyPulse:
			b.emit(models.EventStandbyOK, nil)
			if code, ok := tracker.Standby(); ok {
				b.resolve(ctx, code)
			}
		case ev.IsReset():
			tracker.Acknowledged()
			b.resolve(ctx, ev.ResetTarget())
		case ev.Kind == protocol.Trigger:
			b.trigger(ctx, ev.Code, ev.ADC, tracker)
		}
	}
}

func (b *BridgeService) trigger(ctx context.Context, code string, adc int, tracker *CallTracker) {
	created, err := b.calls.AppendActive(ctx, code, adc)
	if err != nil {
		if b.log != nil {
			b.log.Errorw("store_append_failed", "err", err, "code", code)
		}
		return
	}
	if created == nil {
		return
	}
	tracker.CallCreated(code)

	if !b.ledger.ShouldEmit(debounce.TriggerKey(code), b.cfg.CallWindow) {
		return
	}
	rec := created.Record
	b.emit(models.EventCallTriggered, models.CallTriggered{
		Code:    rec.Code,
		Room:    rec.Room,
		Bed:     rec.Bed,
		Display: rec.Display,
		Files:   created.Files,
	})
}

// resolve completes the latest pending call for code. A miss is silent.
func (b *BridgeService) resolve(ctx context.Context, code string) {
	rec, found, err := b.calls.CompleteLatestMatching(ctx, code)
	if err != nil {
		if b.log != nil {
			b.log.Errorw("store_complete_failed", "err", err, "code", code)
		}
		return
	}
	if !found {
		return
	}
	if !b.ledger.ShouldEmit(debounce.EncloseKey(code), b.cfg.CallWindow) {
		return
	}
	b.emit(models.EventCallResolved, resolvedPayload(rec))
}

func resolvedPayload(rec models.CallRecord) models.CallResolved {
	return models.CallResolved{
		Code:    rec.Code,
		Room:    rec.Room,
		Bed:     rec.Bed,
		Display: models.DisplayName(rec.Code, rec.Room, rec.Bed),
	}
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
