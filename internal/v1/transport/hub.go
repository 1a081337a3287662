// Package transport hosts the websocket connection lifecycle: upgrading
// an incoming HTTP request, decoding/encoding the wire.Envelope framing,
// and handing each event to a Gateway. It holds no room or membership
// state itself — that lives in internal/v1/reconciler and internal/v1/relay.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gateway is what transport needs from the business logic layer to turn
// an accepted connection into room activity. The reconciler/relay pair
// implements it: the first event a connection sends (create-room or
// join-room) is handled exactly like every later one.
type Gateway interface {
	HandleEvent(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope)
	Disconnect(ctx context.Context, connID types.ConnectionID)
}

// RateLimiter is the subset of ratelimit.RateLimiter the websocket upgrade
// path needs.
type RateLimiter interface {
	CheckWebSocket(c *gin.Context) bool
	CheckWebSocketProfile(ctx context.Context, profileID string) error
}

// Hub is the gin handler for the websocket upgrade route.
type Hub struct {
	gateway        Gateway
	limiter        RateLimiter
	allowedOrigins []string

	mu          sync.Mutex
	connections map[types.ConnectionID]*Connection
}

// NewHub constructs a Hub. limiter may be nil to disable rate limiting
// (e.g. in tests).
func NewHub(gateway Gateway, limiter RateLimiter, allowedOrigins []string) *Hub {
	return &Hub{
		gateway:        gateway,
		limiter:        limiter,
		allowedOrigins: allowedOrigins,
		connections:    make(map[types.ConnectionID]*Connection),
	}
}

// ServeWs upgrades the request and starts the connection's read/write
// pumps. The profile id is self-asserted by the client (see
// ratelimit.profileIDHeader's doc comment) via a query parameter.
func (h *Hub) ServeWs(c *gin.Context) {
	profileID := types.ProfileID(c.Query("profileId"))
	if profileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "profileId is required"})
		return
	}

	if err := validateOrigin(c.Request, h.allowedOrigins); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	if h.limiter != nil {
		if !h.limiter.CheckWebSocket(c) {
			return
		}
		if err := h.limiter.CheckWebSocketProfile(c.Request.Context(), string(profileID)); err != nil {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connections for this profile"})
			return
		}
	}

	wsConn, err := h.upgradeWebSocket(c)
	if err != nil {
		return
	}

	connID := types.ConnectionID(uuid.NewString())
	conn := NewConnection(wsConn, connID)

	h.track(conn)
	metrics.IncConnection()

	go conn.writePump()
	go h.readLoop(profileID, conn)
}

func (h *Hub) track(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID()] = conn
}

func (h *Hub) untrack(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, conn.ID())
}

func (h *Hub) readLoop(profileID types.ProfileID, conn *Connection) {
	defer func() {
		h.untrack(conn)
		h.gateway.Disconnect(context.Background(), conn.ID())
		conn.Close()
		metrics.DecConnection()
	}()

	conn.readPump(func(env wire.Envelope) {
		h.gateway.HandleEvent(context.Background(), profileID, conn, env)
	})
}

// Shutdown closes every tracked connection, used when the server exits.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Send(wire.EventRoomClosed, wire.RoomClosed{Reason: "server_shutdown", Message: "server shutting down"})
		conn.Close()
	}

	slog.Info("transport hub shut down", "closedConnections", len(conns))
	return nil
}
