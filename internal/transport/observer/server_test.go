package observer

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"runnerkeep.gg/internal/protocol"
	"runnerkeep.gg/internal/sim/eventbus"
)

func dialTestServer(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, out any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(msg, out); err != nil {
		t.Fatalf("unmarshal %q: %v", msg, err)
	}
}

func TestServer_WelcomeThenEvents(t *testing.T) {
	bus := eventbus.New()
	hub := NewHub()
	Wire(bus, hub)
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	srv := NewServer(hub, 600, map[string]string{"items": "aa"}, logger)

	conn := dialTestServer(t, srv)

	var welcome protocol.WelcomeFrame
	readFrame(t, conn, &welcome)
	if welcome.Type != protocol.TypeWelcome || welcome.ProtocolVersion != protocol.Version {
		t.Fatalf("welcome = %+v", welcome)
	}
	if welcome.TickDurationMs != 600 || welcome.CatalogDigests["items"] != "aa" {
		t.Fatalf("welcome params = %+v", welcome)
	}

	// Give the server a moment to attach the client to the hub.
	waitForClients(t, hub, 1)

	bus.Publish(protocol.ItemProduced{Tick: 42, RunnerID: "R1", Node: "forest", Item: "LOG"})

	var frame struct {
		Type string                `json:"type"`
		Kind string                `json:"kind"`
		Data protocol.ItemProduced `json:"data"`
	}
	readFrame(t, conn, &frame)
	if frame.Type != protocol.TypeEvent || frame.Kind != "ITEM_PRODUCED" {
		t.Fatalf("frame = %+v", frame)
	}
	if frame.Data.Tick != 42 || frame.Data.Item != "LOG" {
		t.Fatalf("data = %+v", frame.Data)
	}
	if hub.LastTick() != 42 {
		t.Fatalf("last tick = %d", hub.LastTick())
	}
}

func TestHub_SlowObserverDropsNotBlocks(t *testing.T) {
	hub := NewHub()
	_, ch := hub.attach()
	for i := 0; i < cap(ch)+10; i++ {
		done := make(chan struct{})
		go func() {
			hub.Broadcast("ITEM_PRODUCED", uint64(i), protocol.ItemProduced{Tick: uint64(i)})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("broadcast %d blocked on slow observer", i)
		}
	}
	if len(ch) != cap(ch) {
		t.Fatalf("queue len = %d, want full %d", len(ch), cap(ch))
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		got := len(hub.clients)
		hub.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("observer never attached")
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
