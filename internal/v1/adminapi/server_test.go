package adminapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/registry"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopRemover struct{ calls []types.ProfileID }

func (n *noopRemover) RemoveStale(_ context.Context, _ types.RoomID, profileID types.ProfileID) {
	n.calls = append(n.calls, profileID)
}

func newTestEngine(reg *registry.Registry, remover Remover) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	s := New(reg, nil, nil, remover, "test")
	s.RegisterRoutes(engine, func(c *gin.Context) { c.Next() })
	return engine
}

func display(name string) types.PlayerDisplay {
	return types.PlayerDisplay{DisplayName: name}
}

// TestActiveRoomsRoutedBeforeParam asserts GET /api/rooms/active is not
// swallowed as a room id lookup for a room literally named "active".
func TestActiveRoomsRoutedBeforeParam(t *testing.T) {
	reg := registry.New(nil)
	engine := newTestEngine(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/active", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rooms")
}

func TestGetRoomNotFound(t *testing.T) {
	reg := registry.New(nil)
	engine := newTestEngine(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/999999", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthReportsRoomAndPlayerCounts(t *testing.T) {
	reg := registry.New(nil)
	r := reg.Create()
	_, _, err := r.Admit("p1", "c1", display("P1"))
	require.NoError(t, err)

	engine := newTestEngine(reg, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activeRooms":1`)
	assert.Contains(t, rec.Body.String(), `"activePlayers":1`)
}

func TestCreateRoomShellAdmitsHostWithNoConnection(t *testing.T) {
	reg := registry.New(nil)
	engine := newTestEngine(reg, nil)

	body := `{"profileId":"p1","displayName":"Host"}`
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/create", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	rooms := reg.List()
	require.Len(t, rooms, 1)
	assert.Equal(t, types.ProfileID("p1"), rooms[0].HostProfileID())
	_, hasConn := rooms[0].ConnectionID("p1")
	assert.False(t, hasConn)
}

func TestCloseRoomRejectsWrongProfile(t *testing.T) {
	reg := registry.New(nil)
	r := reg.Create()
	_, _, err := r.Admit("host", "c1", display("Host"))
	require.NoError(t, err)

	engine := newTestEngine(reg, nil)
	body := `{"userProfileId":"impostor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/close-room/"+string(r.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, ok := reg.Get(r.ID)
	assert.True(t, ok)
}

func TestCloseRoomAdminOverride(t *testing.T) {
	reg := registry.New(nil)
	r := reg.Create()
	_, _, err := r.Admit("host", "c1", display("Host"))
	require.NoError(t, err)

	engine := newTestEngine(reg, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/close-room/"+string(r.ID), nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok := reg.Get(r.ID)
	assert.False(t, ok)
}

func TestCleanupRoomForceRemovesEveryMember(t *testing.T) {
	reg := registry.New(nil)
	r := reg.Create()
	_, _, err := r.Admit("host", "c1", display("Host"))
	require.NoError(t, err)
	_, _, err = r.Admit("guest", "c2", display("Guest"))
	require.NoError(t, err)

	remover := &noopRemover{}
	engine := newTestEngine(reg, remover)

	body := `{"force":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/cleanup-room/"+string(r.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []types.ProfileID{"host", "guest"}, remover.calls)
}

func TestActivateDeactivateProfileIsMembershipOnly(t *testing.T) {
	reg := registry.New(nil)
	engine := newTestEngine(reg, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/user-profiles/p1/activate", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/api/user-profiles/active", nil)
	rec2 := httptest.NewRecorder()
	engine.ServeHTTP(rec2, req2)
	assert.Contains(t, rec2.Body.String(), "p1")

	req3 := httptest.NewRequest(http.MethodDelete, "/api/user-profiles/p1/activate", nil)
	rec3 := httptest.NewRecorder()
	engine.ServeHTTP(rec3, req3)
	require.Equal(t, http.StatusOK, rec3.Code)

	req4 := httptest.NewRequest(http.MethodGet, "/api/user-profiles/active", nil)
	rec4 := httptest.NewRecorder()
	engine.ServeHTTP(rec4, req4)
	assert.NotContains(t, rec4.Body.String(), "p1")
}

func TestWinsRoutesReport503WithoutMatchStore(t *testing.T) {
	reg := registry.New(nil)
	engine := newTestEngine(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/wins/pong", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
