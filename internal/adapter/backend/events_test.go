package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

func TestEventsURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8000":      "ws://localhost:8000/ws",
		"https://api.example.com/":   "wss://api.example.com/ws",
		"http://host:1/prefix":       "ws://host:1/prefix/ws",
		"ws://already.example.com:9": "ws://already.example.com:9/ws",
	}
	for in, want := range tests {
		got, err := EventsURL(in)
		if err != nil {
			t.Fatalf("EventsURL(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("EventsURL(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := EventsURL("ftp://x"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestEventListenerDispatches(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteJSON(domain.BackendEvent{Type: domain.BackendEventRunStart, RunID: "R1", Query: "q"})
		conn.WriteJSON(domain.BackendEvent{Type: domain.BackendEventRunComplete, RunID: "R1"})
		// Hold the connection open until the client goes away.
		conn.ReadMessage()
	}))
	defer server.Close()

	listener, err := NewEventListener(server.URL, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewEventListener failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan domain.BackendEvent, 4)
	done := make(chan error, 1)
	go func() {
		done <- listener.Run(ctx, func(_ context.Context, evt domain.BackendEvent) {
			events <- evt
		})
	}()

	first := <-events
	second := <-events
	if first.Type != domain.BackendEventRunStart || first.Query != "q" {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if second.Type != domain.BackendEventRunComplete || second.RunID != "R1" {
		t.Fatalf("unexpected second event: %+v", second)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener did not stop after cancel")
	}
}
