package wsevents

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestClient(t *testing.T, m *Manager) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(m.HandleUpgrade))
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	// Let the server register the connection before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for m.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestBroadcastDeliversEvent(t *testing.T) {
	t.Parallel()

	m := NewManager()
	conn := dialTestClient(t, m)

	m.Broadcast("auth_status_changed", map[string]bool{"is_logged_in": true})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var event Event
	if err = json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode event failed: %v", err)
	}
	if event.Type != "auth_status_changed" {
		t.Errorf("event type = %q, want auth_status_changed", event.Type)
	}
}

func TestConcurrentBroadcasts(t *testing.T) {
	t.Parallel()

	m := NewManager()
	conn := dialTestClient(t, m)

	// The session watcher and HTTP handlers broadcast from separate
	// goroutines; frames must arrive intact with the client still connected.
	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				m.Broadcast("models_changed", nil)
			}
		}()
	}

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for received < writers*perWriter {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, payload, err := conn.ReadMessage()
			if err != nil {
				t.Errorf("read failed after %d frames: %v", received, err)
				return
			}
			var event Event
			if err = json.Unmarshal(payload, &event); err != nil {
				t.Errorf("corrupt frame: %v", err)
				return
			}
			received++
		}
	}()

	wg.Wait()
	<-done
	if received != writers*perWriter {
		t.Fatalf("received %d frames, want %d", received, writers*perWriter)
	}
	if m.ClientCount() != 1 {
		t.Errorf("client count = %d, want 1", m.ClientCount())
	}
}
