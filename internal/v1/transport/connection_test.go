package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	toRead   [][]byte
	readIdx  int
	readErr  error
	closed   bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readIdx >= len(f.toRead) {
		if f.readErr != nil {
			return 0, nil, f.readErr
		}
		return 0, nil, fmt.Errorf("no more messages")
	}
	msg := f.toRead[f.readIdx]
	f.readIdx++
	return websocket.TextMessage, msg, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func TestConnection_SendEnqueuesEnvelope(t *testing.T) {
	fc := &fakeConn{}
	conn := NewConnection(fc, types.ConnectionID("c1"))

	conn.Send(wire.EventPlayerLeft, wire.PlayerLeft{RoomID: "123456"})

	select {
	case raw := <-conn.send:
		var env wire.Envelope
		assert.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, wire.EventPlayerLeft, env.Event)
	case <-time.After(time.Second):
		t.Fatal("expected message on normal send channel")
	}
}

func TestConnection_PrioritySendUsesSeparateLane(t *testing.T) {
	fc := &fakeConn{}
	conn := NewConnection(fc, types.ConnectionID("c1"))

	conn.Send(wire.EventRoomSnapshot, wire.RoomSnapshot{RoomID: "123456"})

	select {
	case <-conn.prioritySend:
	case <-time.After(time.Second):
		t.Fatal("expected message on priority send channel")
	}

	select {
	case <-conn.send:
		t.Fatal("did not expect message on normal send channel")
	default:
	}
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	fc := &fakeConn{}
	conn := NewConnection(fc, types.ConnectionID("c1"))

	conn.Close()
	assert.NotPanics(t, func() { conn.Close() })
	assert.True(t, fc.closed)
}

func TestConnection_SendAfterCloseIsNoOp(t *testing.T) {
	fc := &fakeConn{}
	conn := NewConnection(fc, types.ConnectionID("c1"))

	conn.Close()
	assert.NotPanics(t, func() {
		conn.Send(wire.EventRoomError, wire.RoomError{Message: "late"})
	})
}

func TestConnection_ReadPumpDispatchesEnvelopes(t *testing.T) {
	env, err := wire.Marshal(wire.EventPlayerReady, wire.PlayerReadyRequest{RoomID: "123456", Ready: true})
	assert.NoError(t, err)
	raw, err := json.Marshal(env)
	assert.NoError(t, err)

	fc := &fakeConn{toRead: [][]byte{raw}, readErr: fmt.Errorf("eof")}
	conn := NewConnection(fc, types.ConnectionID("c1"))

	var received []wire.Envelope
	conn.readPump(func(e wire.Envelope) {
		received = append(received, e)
	})

	assert.Len(t, received, 1)
	assert.Equal(t, wire.EventPlayerReady, received[0].Event)
}

func TestConnection_WritePumpStopsWhenChannelsClose(t *testing.T) {
	fc := &fakeConn{}
	conn := NewConnection(fc, types.ConnectionID("c1"))

	done := make(chan struct{})
	go func() {
		conn.writePump()
		close(done)
	}()

	conn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writePump did not exit after close")
	}
}

func TestConnection_ID(t *testing.T) {
	fc := &fakeConn{}
	conn := NewConnection(fc, types.ConnectionID("abc"))
	assert.Equal(t, types.ConnectionID("abc"), conn.ID())
}
