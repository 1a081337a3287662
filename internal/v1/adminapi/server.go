// Package adminapi implements the HTTP read/admin surface of spec.md
// §6: room introspection, force-close/cleanup actions, and thin
// forwards to ProfileStore/MatchStore. The cleanup routes remove
// members through the same Reconciler the websocket path uses.
// Close-room ends the room with Registry.Delete, whose OnRoomEnded hook
// hands the closing notice to the Reconciler. Room creation admits its
// host directly through Room.Admit, not through the Reconciler.
package adminapi

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/broadcaster"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/matchstore"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/profilestore"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/registry"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/gin-gonic/gin"
)

// Remover lets the admin surface force a targeted stale-member cleanup
// through the same path the Janitor uses, rather than mutating Room
// state directly.
type Remover interface {
	RemoveStale(ctx context.Context, roomID types.RoomID, profileID types.ProfileID)
}

// Server holds the admin surface's dependencies and the in-memory
// active-sessions set spec.md's activate/deactivate routes maintain.
type Server struct {
	reg      *registry.Registry
	lobby    *broadcaster.LobbyBroadcaster
	profiles *profilestore.Client
	matches  *matchstore.Client
	remover  Remover

	startedAt time.Time
	goEnv     string

	mu             sync.Mutex
	activeSessions map[types.ProfileID]bool
}

// New constructs a Server. profiles/matches/remover may be nil; routes
// that depend on a nil dependency respond 503 rather than panicking.
func New(reg *registry.Registry, profiles *profilestore.Client, matches *matchstore.Client, remover Remover, goEnv string) *Server {
	return &Server{
		reg:            reg,
		lobby:          broadcaster.NewLobbyBroadcaster(reg),
		profiles:       profiles,
		matches:        matches,
		remover:        remover,
		startedAt:      time.Now(),
		goEnv:          goEnv,
		activeSessions: make(map[types.ProfileID]bool),
	}
}

// RegisterRoutes wires every route from spec.md §6 onto engine. The
// literal-segment routes (/api/rooms/active, /api/user-profiles/active)
// are registered before their :param siblings so gin's router does not
// swallow them as an id.
func (s *Server) RegisterRoutes(engine *gin.Engine, roomsLimiter gin.HandlerFunc) {
	engine.GET("/health", s.health)

	rooms := engine.Group("/api/rooms")
	rooms.GET("/active", s.listActiveRooms)
	rooms.GET("", s.listRooms)
	rooms.POST("/create", roomsLimiter, s.createRoomShell)
	rooms.GET("/:id", s.getRoom)
	rooms.GET("/:id/players", s.getRoomPlayers)

	admin := engine.Group("/api/admin")
	admin.POST("/close-room/:roomId", roomsLimiter, s.closeRoom)
	admin.POST("/cleanup-stale", roomsLimiter, s.cleanupStale)
	admin.POST("/cleanup-room/:roomId", roomsLimiter, s.cleanupRoom)

	profiles := engine.Group("/api/user-profiles")
	profiles.GET("/active", s.listActiveProfiles)
	profiles.GET("", s.listProfiles)
	profiles.POST("", s.createProfile)
	profiles.GET("/:id", s.getProfile)
	profiles.PATCH("/:id", s.updateProfile)
	profiles.DELETE("/:id", s.deleteProfile)
	profiles.POST("/:id/activate", s.activateProfile)
	profiles.DELETE("/:id/activate", s.deactivateProfile)

	wins := engine.Group("/api/wins")
	wins.GET("/player/:id", s.winsByPlayer)
	wins.GET("/room/:roomId/:gameType", s.winsByRoom)
	wins.GET("/:gameType", s.winsByGameType)
}

func (s *Server) health(c *gin.Context) {
	uptime := time.Since(s.startedAt)
	rooms := s.reg.List()
	totalPlayers := 0
	for _, r := range rooms {
		totalPlayers += r.PlayerCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": gin.H{
			"ms":        uptime.Milliseconds(),
			"s":         int(uptime.Seconds()),
			"m":         int(uptime.Minutes()),
			"h":         int(uptime.Hours()),
			"d":         int(uptime.Hours() / 24),
			"formatted": uptime.String(),
		},
		"rooms": gin.H{
			"activeRooms":   len(rooms),
			"activePlayers": totalPlayers,
			"totalRooms":    s.reg.Count(),
		},
		"sockets": gin.H{
			"totalConnections": totalPlayers,
			"activeRooms":      len(rooms),
		},
		"render": gin.H{
			"instanceId": os.Getenv("RENDER_INSTANCE_ID"),
			"serviceId":  os.Getenv("RENDER_SERVICE_ID"),
		},
		"environment": gin.H{
			"goEnv": s.goEnv,
		},
	})
}
