package adminapi

import (
	"net/http"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/gin-gonic/gin"
)

// winsByGameType, winsByPlayer, and winsByRoom are read-through forwards
// to MatchStore per spec.md §6; the core never writes match records.

func (s *Server) winsByGameType(c *gin.Context) {
	if s.matches == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match store unavailable"})
		return
	}
	game := types.GameType(c.Param("gameType"))
	records, err := s.matches.ByGameType(c.Request.Context(), game)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": records})
}

func (s *Server) winsByPlayer(c *gin.Context) {
	if s.matches == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match store unavailable"})
		return
	}
	id := types.ProfileID(c.Param("id"))
	records, err := s.matches.ByPlayer(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": records})
}

func (s *Server) winsByRoom(c *gin.Context) {
	if s.matches == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match store unavailable"})
		return
	}
	roomID := types.RoomID(c.Param("roomId"))
	game := types.GameType(c.Param("gameType"))
	records, err := s.matches.ByRoom(c.Request.Context(), roomID, game)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": records})
}
