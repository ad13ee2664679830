// Package ws manages exactly one WebSocket connection for the lifetime of a
// chat session: dial, init handshake, guarded sends, ordered inbound frame
// delivery, and idempotent teardown. Reconnection is a caller concern; a
// dead connection only ever degrades to Closed.
package ws

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hubenschmidt/langgraph-react/internal/logging"
	"github.com/hubenschmidt/langgraph-react/internal/protocol"
	"github.com/hubenschmidt/langgraph-react/internal/shared/id"
)

// Status is the connection lifecycle state.
type Status int32

const (
	Connecting Status = iota
	Open
	Closed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// FrameHandler receives one raw inbound text frame. Handlers run on the read
// pump goroutine; a handler that stalls applies backpressure to the stream.
type FrameHandler func(raw []byte)

// StatusHandler observes status transitions.
type StatusHandler func(status Status)

// Conn is one client connection bound to a session identifier.
type Conn struct {
	sid      id.SessionID
	log      *logging.Logger
	conn     *websocket.Conn
	onFrame  FrameHandler
	onStatus StatusHandler

	status atomic.Int32

	// deliverMu serializes frame delivery against Close so that once Close
	// returns, no further frames reach the handler.
	deliverMu sync.Mutex
	detached  bool

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial establishes the transport for a session. On success the status is
// Open and the init frame has already been written; no application data is
// sent before it. On failure the status is Closed and there is no retry.
func Dial(ctx context.Context, endpoint string, sid id.SessionID, onFrame FrameHandler, onStatus StatusHandler, log *logging.Logger) (*Conn, error) {
	c := &Conn{
		sid:      sid,
		log:      log,
		onFrame:  onFrame,
		onStatus: onStatus,
	}
	c.status.Store(int32(Connecting))
	c.notify(Connecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		c.setStatus(Closed)
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	c.conn = conn

	init, err := protocol.EncodeInit(sid)
	if err != nil {
		conn.Close()
		c.setStatus(Closed)
		return nil, fmt.Errorf("encode init frame: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, init); err != nil {
		conn.Close()
		c.setStatus(Closed)
		return nil, fmt.Errorf("write init frame: %w", err)
	}

	c.setStatus(Open)
	c.log.Debug("connection open", zap.String("session", sid.String()), zap.String("endpoint", endpoint))

	go c.readPump()
	return c, nil
}

// Status returns the current connection status.
func (c *Conn) Status() Status {
	return Status(c.status.Load())
}

// Send transmits one user message frame. A non-open connection makes this a
// silent no-op: callers check status or accept that the send is dropped.
func (c *Conn) Send(text string) {
	if c.Status() != Open {
		c.log.Debug("send dropped, connection not open", zap.String("session", c.sid.String()))
		return
	}

	frame, err := protocol.EncodeMessage(c.sid, text)
	if err != nil {
		c.log.Warn("encode message frame", zap.Error(err))
		return
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		c.log.Warn("write failed, degrading connection", zap.Error(err))
		c.Close()
	}
}

// Close tears the connection down. Safe to call from any exit path and any
// number of times; close errors are logged, never propagated. After Close
// returns, the frame handler receives nothing further.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.deliverMu.Lock()
		c.detached = true
		c.deliverMu.Unlock()

		if c.conn != nil {
			if err := c.conn.Close(); err != nil {
				c.log.Debug("transport close", zap.Error(err))
			}
		}
		c.setStatus(Closed)
	})
}

// readPump forwards inbound text frames in arrival order until the
// connection dies. Binary frames are ignored.
func (c *Conn) readPump() {
	defer c.Close()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.Status() == Open {
				c.log.Debug("read loop ended", zap.String("session", c.sid.String()), zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.deliver(data)
	}
}

func (c *Conn) deliver(raw []byte) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.detached {
		return
	}
	c.onFrame(raw)
}

func (c *Conn) setStatus(s Status) {
	if Status(c.status.Swap(int32(s))) != s {
		c.notify(s)
	}
}

func (c *Conn) notify(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
