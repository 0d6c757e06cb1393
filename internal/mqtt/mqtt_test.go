package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"nursecall_bridge/internal/models"
)

func TestTopic(t *testing.T) {
	if got := Topic("ward3", models.EventCallTriggered); got != "ward3/call-triggered" {
		t.Errorf("Topic = %q", got)
	}
	if got := Topic("", models.EventStandbyOK); got != "nursecall/standby-ok" {
		t.Errorf("default prefix: %q", got)
	}
}

func TestFormatPayload(t *testing.T) {
	ev := models.BridgeEvent{
		Type:       models.EventCallResolved,
		Data:       models.CallResolved{Code: "105", Room: "Room E", Bed: "Bed 5", Display: "Room E - Bed 5"},
		OccurredAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.FixedZone("UTC+7", 7*3600)),
	}
	b, err := FormatPayload(ev)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	var got struct {
		Event     string `json:"event"`
		Timestamp string `json:"timestamp"`
		Data      struct {
			Code    string `json:"code"`
			Display string `json:"display"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if got.Event != "call-resolved" || got.Timestamp != "2026-10-17T02:00:00Z" {
		t.Errorf("envelope = %+v", got)
	}
	if got.Data.Code != "105" || got.Data.Display != "Room E - Bed 5" {
		t.Errorf("data = %+v", got.Data)
	}
}

func TestSink_PublishesAllButRawData(t *testing.T) {
	client := NewFakeClient()
	s := NewSink(client, "ward3", 1, nil)

	s.Publish(models.BridgeEvent{Type: models.EventRawData, Data: "101:88"})
	s.Publish(models.BridgeEvent{Type: models.EventDeviceConnected, Data: "COM3"})
	s.Publish(models.BridgeEvent{Type: models.EventStandbyOK})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	msgs := client.Published()
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(msgs))
	}
	if msgs[0].Topic != "ward3/device-connected" || msgs[0].QoS != 1 || msgs[0].Retained {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Topic != "ward3/standby-ok" {
		t.Errorf("second topic = %q", msgs[1].Topic)
	}
}

func TestSink_PublishErrorIsSwallowed(t *testing.T) {
	client := NewFakeClient()
	client.PublishError = errors.New("broker down")
	s := NewSink(client, "", 0, nil)

	s.Publish(models.BridgeEvent{Type: models.EventDeviceError, Data: "boom"})
	if err := s.Close(); err != nil || !client.Closed {
		t.Fatalf("close: %v, closed=%v", err, client.Closed)
	}
	if len(client.Published()) != 0 {
		t.Fatal("nothing should be recorded on error")
	}
}

func TestSink_StalledBrokerDoesNotBlockPublish(t *testing.T) {
	client := NewFakeClient()
	client.Block = make(chan struct{})
	s := newSink(client, "ward3", 1, nil, 2)

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		for i := 0; i < 10; i++ {
			s.Publish(models.BridgeEvent{Type: models.EventCallTriggered, Data: i})
		}
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stalled broker")
	}

	close(client.Block)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// One event in flight plus a full queue of two; the rest were dropped.
	if n := len(client.Published()); n < 1 || n > 3 {
		t.Fatalf("published %d messages, want between 1 and 3", n)
	}
}

func TestSink_PublishAfterCloseIsIgnored(t *testing.T) {
	client := NewFakeClient()
	s := NewSink(client, "", 0, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s.Publish(models.BridgeEvent{Type: models.EventDeviceConnected})
	if len(client.Published()) != 0 {
		t.Fatal("event published after close")
	}
}

func TestSink_IsConnected(t *testing.T) {
	client := NewFakeClient()
	s := NewSink(client, "", 0, nil)
	if !s.IsConnected() {
		t.Fatal("expected connected")
	}
	client.mu.Lock()
	client.Disconnected = true
	client.mu.Unlock()
	if s.IsConnected() {
		t.Fatal("expected disconnected")
	}
	_ = s.Close()
}
