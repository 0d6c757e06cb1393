package handlers

import (
	"context"
	"io"
	"sync"

	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockBridge struct {
	ports         []string
	status        models.LinkStatus
	connectErr    error
	disconnectErr error

	lastPort       string
	connectCalls   int
	disconnectCall int
}

func (m *mockBridge) ListPorts() []string { return m.ports }
func (m *mockBridge) Connect(ctx context.Context, port string) error {
	m.connectCalls++
	m.lastPort = port
	return m.connectErr
}
func (m *mockBridge) Disconnect(ctx context.Context) error {
	m.disconnectCall++
	return m.disconnectErr
}
func (m *mockBridge) Status() models.LinkStatus { return m.status }

type mockCalls struct {
	latest     models.CallRecord
	latestErr  error
	updated    int
	allErr     error
	history    []models.CallRecord
	historyErr error
	export     []byte
	exportErr  error

	lastStatus string
}

func (m *mockCalls) EncloseLatest(ctx context.Context) (models.CallRecord, error) {
	return m.latest, m.latestErr
}
func (m *mockCalls) EncloseAll(ctx context.Context) (int, error) { return m.updated, m.allErr }
func (m *mockCalls) History(ctx context.Context, status string) ([]models.CallRecord, error) {
	m.lastStatus = status
	return m.history, m.historyErr
}
func (m *mockCalls) Export(ctx context.Context, status string, w io.Writer) error {
	m.lastStatus = status
	if m.exportErr != nil {
		return m.exportErr
	}
	_, err := w.Write(m.export)
	return err
}

type mockMaster struct {
	view       service.MasterView
	err        error
	replaceErr error
	lastDoc    []byte
}

func (m *mockMaster) Directory(ctx context.Context) (service.MasterView, error) { return m.view, m.err }
func (m *mockMaster) ReplaceDocument(ctx context.Context, raw []byte) error {
	m.lastDoc = raw
	return m.replaceErr
}

type mockEventLog struct {
	resp   []models.LogEntry
	err    error
	filter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.LogEntry, error) {
	m.filter = f
	return m.resp, m.err
}

type mockDiagnostics struct {
	report service.HealthReport
}

func (m *mockDiagnostics) Report() service.HealthReport { return m.report }

// mockEvents hands out one channel per subscriber and lets tests push into all of them.
type mockEvents struct {
	mu   sync.Mutex
	subs []chan models.BridgeEvent
}

func (m *mockEvents) Subscribe() (<-chan models.BridgeEvent, func()) {
	ch := make(chan models.BridgeEvent, 8)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch, func() {}
}

func (m *mockEvents) push(ev models.BridgeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		ch <- ev
	}
}

func (m *mockEvents) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
