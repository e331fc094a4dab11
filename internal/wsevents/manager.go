// Package wsevents exposes a websocket endpoint that pushes session and
// configuration change events to connected UI surfaces. The UI holds no
// session state of its own; it re-renders from these events plus the status
// endpoint.
package wsevents

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// Event is the wire envelope sent to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// client pairs a connection with its write lock. gorilla/websocket allows
// only one concurrent writer per connection, and Broadcast is reached from
// HTTP handlers and the session watcher goroutine at the same time.
type client struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Manager tracks connected clients and broadcasts events to them.
type Manager struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]*client
}

// NewManager builds an event broadcaster. Origins are not restricted: the
// endpoint only ever serves the local UI and carries no credentials.
func NewManager() *Manager {
	return &Manager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]*client),
	}
}

// HandleUpgrade upgrades the request and keeps the connection registered
// until the peer goes away.
func (m *Manager) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("wsevents: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	m.mu.Lock()
	m.conns[conn] = c
	m.mu.Unlock()

	go m.readLoop(conn)
}

// Broadcast sends the event to every connected client. Dead connections are
// dropped on write failure. Safe for concurrent use.
func (m *Manager) Broadcast(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Errorf("wsevents: marshal event failed: %v", err)
		return
	}

	m.mu.Lock()
	clients := make([]*client, 0, len(m.conns))
	for _, c := range m.conns {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		if err = c.write(payload); err != nil {
			m.drop(c.conn)
		}
	}
}

// ClientCount reports the number of connected UI clients.
func (m *Manager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// readLoop drains inbound frames; clients only listen, so any read error
// means the peer disconnected.
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			m.drop(conn)
			return
		}
	}
}

func (m *Manager) drop(conn *websocket.Conn) {
	m.mu.Lock()
	_, ok := m.conns[conn]
	delete(m.conns, conn)
	m.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}
