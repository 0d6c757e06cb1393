package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/repository"
)

const pendingDocument = `{"callHistoryStorage": [
	{"id": 1, "code": "101", "room": "Room A", "bed": "Bed 1", "status": "active"},
	{"id": 2, "code": "102", "status": "completed", "resetTime": "2026-01-01T00:00:00Z"},
	{"id": 3, "code": "103", "status": "active"},
	{"id": 4, "code": "104", "status": "completed", "resetTime": "2026-01-01T00:00:00Z"},
	{"id": 5, "code": "105", "room": "Room E", "bed": "Bed 5", "status": "active"}
]}`

func newCallService(t *testing.T, doc string) (*CallService, *recordingSink, *repository.CallHistoryJSON) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	calls := repository.NewCallHistoryJSON(repository.NewJSONFileStore(path), nil)
	return NewCallService(calls, sink), sink, calls
}

func TestCallService_EncloseAll(t *testing.T) {
	svc, sink, calls := newCallService(t, pendingDocument)

	n, err := svc.EncloseAll(context.Background())
	if err != nil {
		t.Fatalf("EncloseAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("updated = %d, want 3", n)
	}
	evs := sink.of(models.EventCallResolved)
	if len(evs) != 3 {
		t.Fatalf("call-resolved = %d", len(evs))
	}
	if p := evs[2].Data.(models.CallResolved); p.Code != "105" || p.Display != "Room E - Bed 5" {
		t.Fatalf("last payload = %+v", p)
	}
	if p := evs[1].Data.(models.CallResolved); p.Display != "103" {
		t.Fatalf("unmapped display = %q", p.Display)
	}

	pending, _ := calls.List(context.Background(), models.StatusActive)
	if len(pending) != 0 {
		t.Fatalf("still pending: %+v", pending)
	}

	n, err = svc.EncloseAll(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second EncloseAll = %d, %v", n, err)
	}
	if c := sink.count(models.EventCallResolved); c != 3 {
		t.Fatalf("no-op EncloseAll emitted events: %d", c)
	}
}

func TestCallService_EncloseLatest(t *testing.T) {
	svc, sink, _ := newCallService(t, pendingDocument)
	ctx := context.Background()

	for _, want := range []string{"105", "103", "101"} {
		rec, err := svc.EncloseLatest(ctx)
		if err != nil {
			t.Fatalf("EncloseLatest: %v", err)
		}
		if rec.Code != want || rec.Status != models.StatusCompleted {
			t.Fatalf("completed %+v, want code %s", rec, want)
		}
	}
	if _, err := svc.EncloseLatest(ctx); !errors.Is(err, repository.ErrNoPendingCalls) {
		t.Fatalf("err = %v, want ErrNoPendingCalls", err)
	}
	if n := sink.count(models.EventCallResolved); n != 3 {
		t.Fatalf("call-resolved = %d", n)
	}
}

func TestCallService_StoreErrorsSurface(t *testing.T) {
	svc, _, _ := newCallService(t, `{"callHistoryStorage": {`)
	ctx := context.Background()

	if _, err := svc.EncloseAll(ctx); !errors.Is(err, repository.ErrStoreParse) {
		t.Fatalf("EncloseAll err = %v", err)
	}
	if _, err := svc.EncloseLatest(ctx); !errors.Is(err, repository.ErrStoreParse) {
		t.Fatalf("EncloseLatest err = %v", err)
	}
}

func TestCallService_Export(t *testing.T) {
	svc, _, _ := newCallService(t, pendingDocument)

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), models.StatusActive, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][4] != "Display" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][1] != "101" || rows[3][1] != "105" {
		t.Fatalf("codes = %q, %q", rows[1][1], rows[3][1])
	}
}
