package room

import (
	"sync"
	"testing"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/stretchr/testify/assert"
)

// withShortGracePeriod temporarily lowers HostGracePeriod for tests that
// need to observe the timer actually firing. Safe only because tests in
// this package run serially by default.
func withShortGracePeriod(t *testing.T, d time.Duration) func() {
	t.Helper()
	return SetHostGracePeriodForTest(d)
}

func TestHostGrace_ReconnectWithinWindowKeepsSeat(t *testing.T) {
	r := roomWithTwoPlayers()

	r.Detach("c1") // host's connection
	assert.True(t, r.HasMember("host"))
	assert.Equal(t, types.ProfileID("host"), r.HostProfileID())

	isHost, reconnected, err := r.Admit("host", "c1-new", display("Host"))
	assert.NoError(t, err)
	assert.True(t, isHost)
	assert.True(t, reconnected)
}

func TestHostGrace_ExpiryEndsRoom(t *testing.T) {
	var expired []types.RoomID
	var mu sync.Mutex

	restore := withShortGracePeriod(t, 20*time.Millisecond)
	defer restore()

	r := New("123456", nil, func(id types.RoomID) {
		mu.Lock()
		expired = append(expired, id)
		mu.Unlock()
	}, nil)
	_, _, _ = r.Admit("host", "c1", display("Host"))

	r.Detach("c1")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(expired) == 1
	}, time.Second, 5*time.Millisecond)
}
