package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"nursecall_bridge/internal/device"
	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/repository"
)

const testDocument = `{
  "masterSettings": {"masterType": "Commax"},
  "masterData": [
    {"charCode": "101", "roomName": "Room A", "bedName": "Bed 1", "v1": "a.wav", "v2": "-"},
    {"charCode": "105", "roomName": "Room E", "bedName": "Bed 5"}
  ],
  "callHistoryStorage": []
}`

type recordingSink struct {
	mu     sync.Mutex
	events []models.BridgeEvent
}

func (r *recordingSink) Publish(ev models.BridgeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) of(typ string) []models.BridgeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BridgeEvent
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingSink) count(typ string) int { return len(r.of(typ)) }

type fakeLinkRepo struct {
	mu    sync.Mutex
	state models.LinkState
	saves int
}

func (f *fakeLinkRepo) Save(ctx context.Context, s models.LinkState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	f.saves++
	return nil
}

func (f *fakeLinkRepo) Load(ctx context.Context) (models.LinkState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeLinkRepo) get() models.LinkState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type bridgeFixture struct {
	bridge *BridgeService
	opener *device.FakeOpener
	sink   *recordingSink
	links  *fakeLinkRepo
	calls  *repository.CallHistoryJSON
}

func newBridgeFixture(t *testing.T, doc string) *bridgeFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	f := &bridgeFixture{
		opener: device.NewFakeOpener("COM3"),
		sink:   &recordingSink{},
		links:  &fakeLinkRepo{},
		calls:  repository.NewCallHistoryJSON(repository.NewJSONFileStore(path), nil),
	}
	f.bridge = NewBridgeService(f.opener, f.calls, f.links, f.sink, nil, BridgeConfig{
		OpenBackoff:      10 * time.Millisecond,
		ReconnectBackoff: 10 * time.Millisecond,
	}, nil)
	t.Cleanup(f.bridge.Close)
	return f
}

func (f *bridgeFixture) history(t *testing.T) []models.CallRecord {
	t.Helper()
	recs, err := f.calls.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	return recs
}

// feed pushes a chunk and waits until the bridge has processed it.
func (f *bridgeFixture) feed(t *testing.T, port *device.FakePort, chunk string) {
	t.Helper()
	before := f.sink.count(models.EventRawData)
	port.Push(chunk)
	waitFor(t, "chunk "+chunk, func() bool { return f.sink.count(models.EventRawData) > before })
}

func (f *bridgeFixture) connect(t *testing.T, port *device.FakePort) {
	t.Helper()
	f.opener.Add("COM3", port)
	if err := f.bridge.Connect(context.Background(), "COM3"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitFor(t, "device-connected", func() bool { return f.sink.count(models.EventDeviceConnected) > 0 })
}

func TestBridge_TriggerCreatesCallAndEmits(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	port := device.NewFakePort()
	f.connect(t, port)

	if st := f.bridge.Status(); st.State != models.LinkConnected || st.Port != "COM3" {
		t.Fatalf("status = %+v", st)
	}
	f.feed(t, port, "101:88\r\n")

	hist := f.history(t)
	if len(hist) != 1 || hist[0].Code != "101" || hist[0].Status != models.StatusActive {
		t.Fatalf("history = %+v", hist)
	}
	evs := f.sink.of(models.EventCallTriggered)
	if len(evs) != 1 {
		t.Fatalf("call-triggered events = %d", len(evs))
	}
	p := evs[0].Data.(models.CallTriggered)
	if p.Display != "Room A - Bed 1" || len(p.Files) != 1 || p.Files[0] != "a.wav" {
		t.Fatalf("payload = %+v", p)
	}
	raw := f.sink.of(models.EventRawData)
	if raw[0].Data.(string) != "101:88\r\n" {
		t.Fatalf("raw-data = %q", raw[0].Data)
	}
}

func TestBridge_RetriggerWhileActiveIsDeduplicated(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	port := device.NewFakePort()
	f.connect(t, port)

	f.feed(t, port, "101:88\r\n")
	f.feed(t, port, "101:95\r\n")

	if n := len(f.history(t)); n != 1 {
		t.Fatalf("history has %d records, want 1", n)
	}
	if n := f.sink.count(models.EventCallTriggered); n != 1 {
		t.Fatalf("call-triggered = %d, want 1", n)
	}
}

func TestBridge_BelowThresholdIgnored(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	port := device.NewFakePort()
	f.connect(t, port)

	f.feed(t, port, "101:69\r\n")
	if n := len(f.history(t)); n != 0 {
		t.Fatalf("history has %d records", n)
	}
	if n := f.sink.count(models.EventCallTriggered); n != 0 {
		t.Fatalf("call-triggered = %d", n)
	}
}

func TestBridge_FiveStandbyPulsesCompleteCall(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	port := device.NewFakePort()
	f.connect(t, port)

	f.feed(t, port, "101:88\r\n")
	for i := 0; i < 4; i++ {
		f.feed(t, port, "99:\r\n")
	}
	if hist := f.history(t); hist[0].Status != models.StatusActive {
		t.Fatalf("4 pulses completed the call: %+v", hist[0])
	}
	if n := f.sink.count(models.EventStandbyOK); n != 4 {
		t.Fatalf("standby-ok = %d", n)
	}

	f.feed(t, port, "99:\r\n")
	hist := f.history(t)
	if hist[0].Status != models.StatusCompleted || hist[0].ResetTime == "" {
		t.Fatalf("5th pulse did not complete: %+v", hist[0])
	}
	evs := f.sink.of(models.EventCallResolved)
	if len(evs) != 1 || evs[0].Data.(models.CallResolved).Code != "101" {
		t.Fatalf("call-resolved = %+v", evs)
	}
}

func TestBridge_AckInterruptsStandbyCount(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	port := device.NewFakePort()
	f.connect(t, port)

	f.feed(t, port, "101:88\r\n")
	f.feed(t, port, "99:\r\n")
	f.feed(t, port, "99:\r\n")
	f.feed(t, port, "902:\r\n") // ack for another station, no record
	for i := 0; i < 5; i++ {
		f.feed(t, port, "99:\r\n")
	}
	if hist := f.history(t); hist[0].Status != models.StatusActive {
		t.Fatalf("pulses after an ack completed the call: %+v", hist[0])
	}
	if n := f.sink.count(models.EventCallResolved); n != 0 {
		t.Fatalf("call-resolved = %d", n)
	}
}

func TestBridge_AiphoneScenario(t *testing.T) {
	doc := `{"masterSettings": {"masterType": "AIPHONE"}, "masterData": [
		{"charCode": "105", "roomName": "Room E", "bedName": "Bed 5"}
	], "callHistoryStorage": []}`
	f := newBridgeFixture(t, doc)
	port := device.NewFakePort()
	f.connect(t, port)

	f.feed(t, port, "105:120\r\n")
	if n := len(f.history(t)); n != 0 {
		t.Fatalf("ADC 120 created %d records", n)
	}

	f.feed(t, port, "105:200\r\n")
	hist := f.history(t)
	if len(hist) != 1 || hist[0].Status != models.StatusActive {
		t.Fatalf("ADC 200: history = %+v", hist)
	}

	f.feed(t, port, "905:\r\n")
	hist = f.history(t)
	if hist[0].Status != models.StatusCompleted {
		t.Fatalf("ack did not complete: %+v", hist[0])
	}
	evs := f.sink.of(models.EventCallResolved)
	if len(evs) != 1 {
		t.Fatalf("call-resolved = %d", len(evs))
	}
	if p := evs[0].Data.(models.CallResolved); p.Code != "105" || p.Display != "Room E - Bed 5" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestBridge_ResetTriggerCompletesStation(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	port := device.NewFakePort()
	f.connect(t, port)

	f.feed(t, port, "105:80\r\n")
	f.feed(t, port, "905:10\r\n")

	hist := f.history(t)
	if len(hist) != 1 || hist[0].Status != models.StatusCompleted {
		t.Fatalf("history = %+v", hist)
	}
}

func TestBridge_AckWithoutActiveRecordIsNoop(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	port := device.NewFakePort()
	f.connect(t, port)

	f.feed(t, port, "907:\r\n")
	f.feed(t, port, "907:150\r\n")

	if n := len(f.history(t)); n != 0 {
		t.Fatalf("history = %d", n)
	}
	if n := f.sink.count(models.EventCallResolved); n != 0 {
		t.Fatalf("call-resolved = %d", n)
	}
}

func TestBridge_OpenFailureRetriesWithThrottledError(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	if err := f.bridge.Connect(context.Background(), "COM9"); err != nil {
		t.Fatalf("Connect must not fail on a missing device: %v", err)
	}
	waitFor(t, "several open attempts", func() bool { return f.opener.Opens("COM9") >= 4 })

	if n := f.sink.count(models.EventDeviceError); n != 1 {
		t.Fatalf("device-error = %d, want 1 within the throttle window", n)
	}
	if st := f.bridge.Status(); st.Port != "COM9" || st.State == models.LinkConnected {
		t.Fatalf("status = %+v", st)
	}
}

func TestBridge_ReconnectReportsOpenFailureAgain(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	ctx := context.Background()
	if err := f.bridge.Connect(ctx, "COM9"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitFor(t, "first device-error", func() bool { return f.sink.count(models.EventDeviceError) == 1 })

	if err := f.bridge.Connect(ctx, "COM9"); err != nil {
		t.Fatalf("Connect again: %v", err)
	}
	waitFor(t, "second device-error", func() bool { return f.sink.count(models.EventDeviceError) == 2 })
}

func TestBridge_ReadErrorReconnects(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	first := device.NewFakePort("101:88\r\n").FailWith(errors.New("unplugged"))
	second := device.NewFakePort()
	f.opener.Add("COM3", first).Add("COM3", second)

	if err := f.bridge.Connect(context.Background(), "COM3"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "reconnect", func() bool { return f.sink.count(models.EventDeviceConnected) == 2 })

	if !first.Closed() {
		t.Fatal("first port was not closed")
	}
	if n := f.sink.count(models.EventDeviceDisconnected); n != 1 {
		t.Fatalf("device-disconnected = %d", n)
	}

	// tracker was reset: pulses on the new connection do not clear the old call
	for i := 0; i < 5; i++ {
		f.feed(t, second, "99:\r\n")
	}
	if hist := f.history(t); len(hist) != 1 || hist[0].Status != models.StatusActive {
		t.Fatalf("history = %+v", hist)
	}
}

func TestBridge_DisconnectReleasesPort(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	port := device.NewFakePort()
	f.connect(t, port)

	if ls := f.links.get(); ls.Port != "COM3" || !ls.AutoReconnect {
		t.Fatalf("link state after connect = %+v", ls)
	}
	if err := f.bridge.Disconnect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !port.Closed() {
		t.Fatal("port still open after Disconnect returned")
	}
	if st := f.bridge.Status(); st.State != models.LinkStopped {
		t.Fatalf("status = %+v", st)
	}
	if ls := f.links.get(); ls.AutoReconnect {
		t.Fatalf("auto reconnect still set: %+v", ls)
	}
	if n := f.sink.count(models.EventDeviceDisconnected); n != 1 {
		t.Fatalf("device-disconnected = %d", n)
	}
}

func TestBridge_ConnectReplacesPreviousWorker(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	first := device.NewFakePort()
	f.connect(t, first)

	second := device.NewFakePort()
	f.opener.Add("COM4", second)
	if err := f.bridge.Connect(context.Background(), "COM4"); err != nil {
		t.Fatal(err)
	}
	if !first.Closed() {
		t.Fatal("previous port must be closed before Connect returns")
	}
	waitFor(t, "second connection", func() bool { return f.bridge.Status().State == models.LinkConnected })
	if st := f.bridge.Status(); st.Port != "COM4" {
		t.Fatalf("status = %+v", st)
	}
}

func TestBridge_ConnectValidationAndClose(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	if err := f.bridge.Connect(context.Background(), "  "); !errors.Is(err, ErrPortRequired) {
		t.Fatalf("blank port err = %v", err)
	}
	f.bridge.Close()
	if err := f.bridge.Connect(context.Background(), "COM3"); !errors.Is(err, ErrBridgeClosed) {
		t.Fatalf("after close err = %v", err)
	}
}

func TestBridge_Resume(t *testing.T) {
	f := newBridgeFixture(t, testDocument)

	port, err := f.bridge.Resume(context.Background())
	if err != nil || port != "" {
		t.Fatalf("empty link state: %q, %v", port, err)
	}

	f.links.state = models.LinkState{ID: 1, Port: "COM3", AutoReconnect: true}
	f.opener.Add("COM3", device.NewFakePort())
	port, err = f.bridge.Resume(context.Background())
	if err != nil || port != "COM3" {
		t.Fatalf("resume: %q, %v", port, err)
	}
	waitFor(t, "resumed connection", func() bool { return f.sink.count(models.EventDeviceConnected) == 1 })
}

func TestBridge_ListPorts(t *testing.T) {
	f := newBridgeFixture(t, testDocument)
	if got := f.bridge.ListPorts(); len(got) != 1 || got[0] != "COM3" {
		t.Fatalf("ports = %v", got)
	}
	f.opener.Ports = nil
	if got := f.bridge.ListPorts(); got == nil || len(got) != 0 {
		t.Fatalf("ports = %#v, want empty slice", got)
	}
}
