package room

import (
	"testing"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/stretchr/testify/assert"
)

func display(name string) types.PlayerDisplay {
	return types.PlayerDisplay{DisplayName: name, Color: types.DefaultColor, Emoji: types.DefaultEmoji}
}

func TestNew(t *testing.T) {
	r := New("123456", nil, nil, nil)

	assert.Equal(t, types.RoomID("123456"), r.ID)
	assert.Equal(t, types.RoomStatusWaiting, r.Status())
	assert.Equal(t, 0, r.PlayerCount())
	assert.Empty(t, r.HostProfileID())
}

func TestAdmit_FirstPlayerBecomesHost(t *testing.T) {
	r := New("123456", nil, nil, nil)

	isHost, reconnected, err := r.Admit("p1", "c1", display("Alice"))
	assert.NoError(t, err)
	assert.True(t, isHost)
	assert.False(t, reconnected)
	assert.Equal(t, types.ProfileID("p1"), r.HostProfileID())
	assert.True(t, r.IsHost("p1"))
}

func TestAdmit_SecondPlayerIsNotHost(t *testing.T) {
	r := New("123456", nil, nil, nil)
	_, _, _ = r.Admit("p1", "c1", display("Alice"))

	isHost, reconnected, err := r.Admit("p2", "c2", display("Bob"))
	assert.NoError(t, err)
	assert.False(t, isHost)
	assert.False(t, reconnected)
	assert.Equal(t, 2, r.PlayerCount())
}

func TestAdmit_RoomFull(t *testing.T) {
	r := New("123456", nil, nil, nil)
	for i := 0; i < types.MaxPlayers; i++ {
		profileID := types.ProfileID(string(rune('a' + i)))
		_, _, err := r.Admit(profileID, types.ConnectionID(profileID), display("P"))
		assert.NoError(t, err)
	}

	_, _, err := r.Admit("overflow", "c-overflow", display("Overflow"))
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestAdmit_ReconnectClearsHostGrace(t *testing.T) {
	r := New("123456", nil, nil, nil)
	_, _, _ = r.Admit("host", "c1", display("Host"))

	r.Detach("c1")
	assert.True(t, r.HasMember("host"))

	isHost, reconnected, err := r.Admit("host", "c2", display("Host"))
	assert.NoError(t, err)
	assert.True(t, isHost)
	assert.True(t, reconnected)
}

func TestDetach_NonHostIsRemovedImmediately(t *testing.T) {
	var emptied []types.RoomID
	r := New("123456", func(id types.RoomID) { emptied = append(emptied, id) }, nil, nil)
	_, _, _ = r.Admit("host", "c1", display("Host"))
	_, _, _ = r.Admit("guest", "c2", display("Guest"))

	r.Detach("c2")
	assert.False(t, r.HasMember("guest"))
	assert.Equal(t, 1, r.PlayerCount())
}

func TestRemove_ReassignsHost(t *testing.T) {
	r := New("123456", nil, nil, nil)
	_, _, _ = r.Admit("host", "c1", display("Host"))
	_, _, _ = r.Admit("guest", "c2", display("Guest"))

	err := r.Remove("host")
	assert.NoError(t, err)
	assert.Equal(t, types.ProfileID("guest"), r.HostProfileID())
}

func TestRemove_PlayerNotFound(t *testing.T) {
	r := New("123456", nil, nil, nil)
	err := r.Remove("nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSnapshot_OrderedByJoin(t *testing.T) {
	r := New("123456", nil, nil, nil)
	_, _, _ = r.Admit("p1", "c1", display("Alice"))
	_, _, _ = r.Admit("p2", "c2", display("Bob"))

	snap := r.Snapshot()
	assert.Len(t, snap.Players, 2)
	assert.Equal(t, types.ProfileID("p1"), snap.Players[0].ProfileID)
	assert.Equal(t, types.ProfileID("p2"), snap.Players[1].ProfileID)
}

func TestSummary_ReflectsHost(t *testing.T) {
	r := New("123456", nil, nil, nil)
	_, _, _ = r.Admit("p1", "c1", display("Alice"))

	sum := r.Summary()
	assert.Equal(t, types.ProfileID("p1"), sum.HostProfileID)
	assert.Equal(t, "Alice", sum.HostDisplayName)
	assert.Equal(t, 1, sum.PlayerCount)
	assert.Equal(t, types.MaxPlayers, sum.MaxPlayers)
}
