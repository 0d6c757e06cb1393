package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/service"
)

func TestLogsHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.LogEntry{
		{EventID: "e1", OccurredAt: now, Type: models.EventDeviceConnected, Description: "connected to COM3"},
		{EventID: "e2", OccurredAt: now.Add(time.Second), Type: models.EventDeviceError, Description: "open failed"},
	}
	logs := &mockEventLog{resp: events}
	r := newTestRouter(&service.Service{EventLog: logs})

	// invalid 'from' → 400
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=notatime", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	// valid range and type (uppercase type normalized to lowercase)
	w = httptest.NewRecorder()
	q := "/api/v1/logs?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=DEVICE-ERROR"
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, q, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int               `json:"count"`
		Events []models.LogEntry `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.filter.Type != "device-error" {
		t.Fatalf("expected type device-error, got %q", logs.filter.Type)
	}
	if !logs.filter.From.Equal(now) {
		t.Fatalf("from = %v", logs.filter.From)
	}
}

func TestLogsHandler_DateOnlyToIsEndOfDay(t *testing.T) {
	logs := &mockEventLog{}
	r := newTestRouter(&service.Service{EventLog: logs})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=2026-10-01&to=2026-10-01", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	want := time.Date(2026, 10, 1, 23, 59, 59, 999999999, time.UTC)
	if !logs.filter.To.Equal(want) {
		t.Fatalf("to = %v, want %v", logs.filter.To, want)
	}
}

func TestLogsHandler_RangeAndServiceErrors(t *testing.T) {
	logs := &mockEventLog{err: errors.New("db down")}
	r := newTestRouter(&service.Service{EventLog: logs})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=2026-10-02&to=2026-10-01", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("service error: status=%d", w.Code)
	}
}
