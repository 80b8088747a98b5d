package opsserver

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/csml-dev/csml-engine/internal/events"
)

func TestHandleStream_ReceivesPublishedEvent(t *testing.T) {
	bus := events.New()
	srv := New(bus, nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// give the server goroutine time to register the subscription
	// before publishing, since Subscribe happens inside the upgrade
	// handler after the client's Dial already returns.
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if bus.SubscriberCount() != 1 {
		t.Fatalf("got %d subscribers, want 1", bus.SubscriberCount())
	}

	bus.Publish(events.Event{Source: events.SourceEngine, Kind: events.KindHold,
		Data: map[string]any{"conversation_id": "conv-1"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Kind != events.KindHold {
		t.Fatalf("got kind %q, want %q", got.Kind, events.KindHold)
	}
	if got.Data["conversation_id"] != "conv-1" {
		t.Fatalf("got data %v, want conversation_id=conv-1", got.Data)
	}
}

func TestHandleStream_DisconnectUnsubscribes(t *testing.T) {
	bus := events.New()
	srv := New(bus, nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if bus.SubscriberCount() != 0 {
		t.Fatalf("got %d subscribers after disconnect, want 0", bus.SubscriberCount())
	}
}
