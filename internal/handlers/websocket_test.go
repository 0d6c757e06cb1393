package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 5 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=2m", 5 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=60001", 5 * time.Second},
		{"interval_at_max", "/ws?interval=60s", 60 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 5 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 5 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tc.u, nil)
			if got := h.parseInterval(c); got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

func dialWS(t *testing.T, s *service.Service, query string) *websocket.Conn {
	t.Helper()
	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocket_StatusInitialAndPeriodic(t *testing.T) {
	bridge := &mockBridge{status: models.LinkStatus{State: models.LinkConnected, Port: "COM3"}}
	conn := dialWS(t, &service.Service{Bridge: bridge, Events: &mockEvents{}}, "interval_ms=20")

	msg := readWS(t, conn)
	if msg.Type != wsTypeStatus {
		t.Fatalf("expected status, got %+v", msg)
	}
	var st models.LinkStatus
	if err := json.Unmarshal(msg.Data, &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if st.State != models.LinkConnected || st.Port != "COM3" {
		t.Fatalf("unexpected status: %+v", st)
	}

	if msg = readWS(t, conn); msg.Type != wsTypeStatus {
		t.Fatalf("expected periodic status, got %+v", msg)
	}
}

func TestWebSocket_ForwardsBridgeEvents(t *testing.T) {
	events := &mockEvents{}
	bridge := &mockBridge{status: models.LinkStatus{State: models.LinkOpening, Port: "COM3"}}
	conn := dialWS(t, &service.Service{Bridge: bridge, Events: events}, "")

	if msg := readWS(t, conn); msg.Type != wsTypeStatus {
		t.Fatalf("expected initial status, got %+v", msg)
	}

	deadline := time.Now().Add(time.Second)
	for events.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	events.push(models.BridgeEvent{
		Type:       models.EventCallTriggered,
		Data:       models.CallTriggered{Code: "105", Room: "Room E", Bed: "Bed 5", Display: "Room E - Bed 5"},
		OccurredAt: time.Now().UTC(),
	})

	msg := readWS(t, conn)
	if msg.Type != models.EventCallTriggered {
		t.Fatalf("expected call-triggered, got %+v", msg)
	}
	var call models.CallTriggered
	if err := json.Unmarshal(msg.Data, &call); err != nil || call.Code != "105" || call.Display != "Room E - Bed 5" {
		t.Fatalf("payload = %s", msg.Data)
	}
	if msg.Time.IsZero() {
		t.Fatal("missing event time")
	}
}
