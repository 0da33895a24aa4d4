package signal

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/gorilla/websocket"
)

var ErrBackpressure = errors.New("backpressure")

var _ core.SignalConnection = (*WsSignalConn)(nil)

// WsSignalConn is one client socket. Only writePump writes to conn.
type WsSignalConn struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan core.Frame

	// admin is set once by a successful admin.login on this connection.
	admin atomic.Bool

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(id domain.ConnID, ws *websocket.Conn) *WsSignalConn {
	return &WsSignalConn{
		id:   id,
		conn: ws,
		send: make(chan core.Frame, 64),
	}
}

func (c *WsSignalConn) ID() domain.ConnID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return domain.ErrTransportUnavailable
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Drain stops accepting frames; writePump flushes what is queued and then closes the socket.
func (c *WsSignalConn) Drain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Close drops the socket immediately.
func (c *WsSignalConn) Close() {
	c.Drain()
	_ = c.conn.Close()
}
