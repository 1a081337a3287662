package transport

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
	"github.com/gorilla/websocket"
)

// wsConn is the subset of *websocket.Conn this package depends on, so
// tests can substitute a fake socket.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// priorityEvents carries state that must never queue behind chattier
// traffic: a slow receiver should still see these promptly, or be
// considered lost.
var priorityEvents = map[string]bool{
	wire.EventRoomSnapshot:     true,
	wire.EventRoomError:        true,
	wire.EventRoomClosed:       true,
	wire.EventPlayerKicked:     true,
	wire.EventHostDisconnected: true,
	wire.EventHostReconnected:  true,
}

// Connection wraps one upgraded websocket socket. It implements
// types.Connection for the room/relay/broadcaster layers, which never see
// the underlying transport.
type Connection struct {
	conn wsConn
	id   types.ConnectionID

	send         chan []byte
	prioritySend chan []byte

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewConnection wraps an upgraded socket with the given connection id.
func NewConnection(conn wsConn, id types.ConnectionID) *Connection {
	return &Connection{
		conn:         conn,
		id:           id,
		send:         make(chan []byte, 256),
		prioritySend: make(chan []byte, 256),
	}
}

// ID satisfies types.Connection.
func (c *Connection) ID() types.ConnectionID {
	return c.id
}

// Send marshals payload into an Envelope for event and enqueues it.
func (c *Connection) Send(event string, payload any) {
	env, err := wire.Marshal(event, payload)
	if err != nil {
		slog.Error("failed to marshal outgoing envelope", "event", event, "error", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("failed to marshal outgoing envelope", "event", event, "error", err)
		return
	}
	c.SendRaw(event, data)
}

// SendRaw enqueues an already-encoded envelope, using event only to pick
// the priority lane.
func (c *Connection) SendRaw(event string, raw []byte) {
	if c.closed.Load() {
		slog.Debug("skipping send to closed connection", "connectionId", c.id)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("recovered from panic sending to connection", "connectionId", c.id, "panic", r)
		}
	}()

	if priorityEvents[event] {
		select {
		case c.prioritySend <- raw:
		default:
			slog.Error("connection priority channel full, dropping critical message", "connectionId", c.id, "event", event)
		}
		return
	}

	select {
	case c.send <- raw:
	default:
		slog.Warn("connection send channel full or closed", "connectionId", c.id, "event", event)
	}
}

// Close shuts the connection down exactly once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.send)
		close(c.prioritySend)
		c.conn.Close()
	})
}

// readPump decodes incoming text frames into wire.Envelope and hands each
// to onMessage until the socket errors or closes. Runs until the read
// loop exits; callers should run it in its own goroutine and treat its
// return as "this connection is gone".
func (c *Connection) readPump(onMessage func(wire.Envelope)) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("failed to unmarshal incoming envelope", "connectionId", c.id, "error", err)
			continue
		}

		onMessage(env)
	}
}

// writePump drains the priority and normal send channels until both are
// closed, bounding every write with a deadline so a stalled client can't
// block the room indefinitely.
func (c *Connection) writePump() {
	defer c.conn.Close()
	const writeWait = 10 * time.Second

	for {
		select {
		case message, ok := <-c.prioritySend:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Error("error writing priority message", "connectionId", c.id, "error", err)
				return
			}
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Error("error writing message", "connectionId", c.id, "error", err)
				return
			}
		}
	}
}

var _ types.Connection = (*Connection)(nil)
