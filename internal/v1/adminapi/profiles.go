package adminapi

import (
	"net/http"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/profilestore"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/gin-gonic/gin"
)

// listProfiles, listActiveProfiles, getProfile, createProfile,
// updateProfile, and deleteProfile are thin forwards to ProfileStore per
// spec.md §6; this package never caches or normalizes beyond what the
// client already does.

func (s *Server) listProfiles(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
		return
	}
	records, err := s.profiles.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": records})
}

// listActiveProfiles returns only the profiles in the in-memory
// active-sessions set maintained by activate/deactivate, not a store
// query: spec.md is explicit this is membership-only, no other semantics.
func (s *Server) listActiveProfiles(c *gin.Context) {
	s.mu.Lock()
	ids := make([]types.ProfileID, 0, len(s.activeSessions))
	for id, active := range s.activeSessions {
		if active {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"activeProfileIds": ids})
}

func (s *Server) getProfile(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
		return
	}
	id := types.ProfileID(c.Param("id"))
	record, err := s.profiles.Read(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) createProfile(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
		return
	}
	var req profilestore.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	record, err := s.profiles.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) updateProfile(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
		return
	}
	id := types.ProfileID(c.Param("id"))
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	record, err := s.profiles.Update(c.Request.Context(), id, patch)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) deleteProfile(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
		return
	}
	id := types.ProfileID(c.Param("id"))
	if err := s.profiles.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	delete(s.activeSessions, id)
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (s *Server) activateProfile(c *gin.Context) {
	id := types.ProfileID(c.Param("id"))
	s.mu.Lock()
	s.activeSessions[id] = true
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"profileId": id, "active": true})
}

func (s *Server) deactivateProfile(c *gin.Context) {
	id := types.ProfileID(c.Param("id"))
	s.mu.Lock()
	delete(s.activeSessions, id)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"profileId": id, "active": false})
}
