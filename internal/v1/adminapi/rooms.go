package adminapi

import (
	"net/http"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/registry"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/gin-gonic/gin"
)

// listActiveRooms returns the same filtered, sorted listing the lobby
// channel receives over the websocket: rooms in Waiting/Playing, under
// capacity, not in the recently-ended window, sorted by player count.
func (s *Server) listActiveRooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.lobby.Build())
}

// listRooms returns every room currently in the registry, regardless of
// joinability — unlike /active this is an unfiltered debug/ops view.
func (s *Server) listRooms(c *gin.Context) {
	rooms := s.reg.List()
	summaries := make([]types.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.Summary())
	}
	c.JSON(http.StatusOK, gin.H{"rooms": summaries})
}

func (s *Server) getRoom(c *gin.Context) {
	id := types.RoomID(c.Param("id"))
	r, ok := s.reg.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, r.Summary())
}

func (s *Server) getRoomPlayers(c *gin.Context) {
	id := types.RoomID(c.Param("id"))
	r, ok := s.reg.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	snap := r.Snapshot()
	c.JSON(http.StatusOK, gin.H{"players": snap.Players})
}

type createRoomRequest struct {
	ProfileID   types.ProfileID `json:"profileId" binding:"required"`
	DisplayName string          `json:"displayName"`
	Color       string          `json:"color"`
	Emoji       string          `json:"emoji"`
}

// createRoomShell creates a room and admits the given profile as its
// host at once, with no connection attached yet. The profile's first
// websocket join-room for this room id is then handled as a reconnect,
// which attaches its connection.
func (s *Server) createRoomShell(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	display := types.PlayerDisplay{
		ProfileID:   req.ProfileID,
		DisplayName: req.DisplayName,
		Color:       req.Color,
		Emoji:       req.Emoji,
	}
	if display.Color == "" {
		display.Color = types.DefaultColor
	}
	if display.Emoji == "" {
		display.Emoji = types.DefaultEmoji
	}

	r := s.reg.Create()
	if _, _, err := r.Admit(req.ProfileID, "", display); err != nil {
		s.reg.Delete(r.ID, registry.EndReasonEmpty)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"roomId": r.ID, "hostProfileId": req.ProfileID})
}

type closeRoomRequest struct {
	UserProfileID types.ProfileID `json:"userProfileId"`
}

// closeRoom ends a room. If userProfileId is given it must match the
// room's current host; an absent field is an admin override.
func (s *Server) closeRoom(c *gin.Context) {
	id := types.RoomID(c.Param("roomId"))
	r, ok := s.reg.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	var req closeRoomRequest
	_ = c.ShouldBindJSON(&req)

	if req.UserProfileID != "" && req.UserProfileID != r.HostProfileID() {
		c.JSON(http.StatusForbidden, gin.H{"error": "userProfileId is not the room host"})
		return
	}

	s.reg.Delete(id, registry.EndReasonAdminClose)
	c.JSON(http.StatusOK, gin.H{"closed": id})
}

type cleanupStaleRequest struct {
	Force  bool         `json:"force"`
	RoomID types.RoomID `json:"roomId"`
}

// cleanupStale runs an on-demand stale-member sweep across every room,
// or a single room when roomId is given. force bypasses the activity
// threshold and reaps every member of the targeted room(s) immediately.
func (s *Server) cleanupStale(c *gin.Context) {
	var req cleanupStaleRequest
	_ = c.ShouldBindJSON(&req)

	if req.RoomID != "" {
		removed := s.cleanupOneRoom(c, req.RoomID, req.Force)
		if removed < 0 {
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomsSwept": 1, "membersRemoved": removed})
		return
	}

	var targets []types.RoomID
	if req.Force {
		for _, r := range s.reg.List() {
			targets = append(targets, r.ID)
		}
	} else {
		targets = s.reg.StaleRoomIDs()
	}

	removed := 0
	for _, id := range targets {
		n := s.cleanupOneRoom(c, id, req.Force)
		if n > 0 {
			removed += n
		}
	}
	c.JSON(http.StatusOK, gin.H{"roomsSwept": len(targets), "membersRemoved": removed})
}

type cleanupRoomRequest struct {
	Force bool `json:"force"`
}

// cleanupRoom is the single-room form of cleanup-stale.
func (s *Server) cleanupRoom(c *gin.Context) {
	id := types.RoomID(c.Param("roomId"))
	var req cleanupRoomRequest
	_ = c.ShouldBindJSON(&req)

	removed := s.cleanupOneRoom(c, id, req.Force)
	if removed < 0 {
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": id, "membersRemoved": removed})
}

// cleanupOneRoom removes every member of room id through the reconciler's
// standard RemoveStale path (force) or only if it is actually stale
// (!force), writing a 404 to c and returning -1 when the room is gone.
func (s *Server) cleanupOneRoom(c *gin.Context, id types.RoomID, force bool) int {
	r, ok := s.reg.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return -1
	}
	if s.remover == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cleanup unavailable"})
		return -1
	}
	if !force {
		stale := false
		for _, staleID := range s.reg.StaleRoomIDs() {
			if staleID == id {
				stale = true
				break
			}
		}
		if !stale {
			return 0
		}
	}

	snap := r.Snapshot()
	for _, p := range snap.Players {
		s.remover.RemoveStale(c.Request.Context(), id, p.ProfileID)
	}
	return len(snap.Players)
}
