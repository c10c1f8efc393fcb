package eventbus

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// WSFanout mirrors published events onto a set of registered websocket
// connections, dropping any connection whose write fails. It is broadcast
// to after handler dispatch completes for an event.
type WSFanout struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *slog.Logger
}

func newWSFanout(logger *slog.Logger) *WSFanout {
	return &WSFanout{conns: make(map[*websocket.Conn]struct{}), logger: logger}
}

// Register adds conn to the broadcast set.
func (f *WSFanout) Register(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[conn] = struct{}{}
}

// Unregister removes conn from the broadcast set without closing it.
func (f *WSFanout) Unregister(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, conn)
}

// Count returns the number of currently registered connections.
func (f *WSFanout) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Broadcast writes ev as JSON to every registered connection, removing and
// closing any connection whose write fails.
func (f *WSFanout) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		f.logger.Warn("event marshal failed", "event_id", ev.ID, "error", err)
		return
	}

	f.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(f.conns))
	for c := range f.conns {
		targets = append(targets, c)
	}
	f.mu.Unlock()

	for _, c := range targets {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			f.Unregister(c)
			c.Close()
		}
	}
}

// CloseAll closes and forgets every registered connection.
func (f *WSFanout) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.conns {
		c.Close()
	}
	f.conns = make(map[*websocket.Conn]struct{})
}
