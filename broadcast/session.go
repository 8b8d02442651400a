package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Session is one subscriber's WebSocket connection. filterPort is nil for
// the all-drones endpoint, or a specific port for /telemetry/{port}.
type Session struct {
	id         string
	filterPort *int
	conn       *websocket.Conn

	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewSession wraps an already-upgraded connection. filterPort may be nil.
func NewSession(id string, conn *websocket.Conn, filterPort *int) *Session {
	return &Session{id: id, conn: conn, filterPort: filterPort}
}

// send writes data as one WebSocket text frame, serialized against any
// concurrent send on the same session. A write after Close is a no-op.
func (s *Session) send(data []byte) error {
	if s.closed.Load() {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close marks the session closed and releases its transport. Safe to call
// more than once.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.conn.Close()
	}
}
