package janitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/registry"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type fakeRemover struct {
	mu      sync.Mutex
	removed []types.ProfileID
}

func (f *fakeRemover) RemoveStale(_ context.Context, roomID types.RoomID, profileID types.ProfileID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, profileID)
}

func (f *fakeRemover) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.removed)
}

func display(name string) types.PlayerDisplay {
	return types.PlayerDisplay{DisplayName: name}
}

func TestJanitor_ShutdownStopsAllLoopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := registry.New(nil)
	remover := &fakeRemover{}
	j := New(reg, remover)
	j.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	j.Shutdown()
}

func TestJanitor_SweepEmptyRoomsRemovesOrphans(t *testing.T) {
	reg := registry.New(nil)
	r := reg.Create()
	_, _, _ = r.Admit("p1", "c1", display("P1"))
	_ = r.Remove("p1") // empties the room; room.Room's own onEmpty hook races the sweep

	j := New(reg, &fakeRemover{})
	assert.Eventually(t, func() bool {
		j.sweepEmptyRooms(context.Background())
		_, ok := reg.Get(r.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestJanitor_SweepStaleMembersSkipsFreshRoom(t *testing.T) {
	reg := registry.New(nil)
	r := reg.Create()
	_, _, _ = r.Admit("p1", "c1", display("P1"))
	_, _, _ = r.Admit("p2", "c2", display("P2"))

	remover := &fakeRemover{}
	j := New(reg, remover)

	// StaleRoomIDs is driven by LastActivityAt, which Admit just set to
	// now; there is no production knob to force staleness, so this
	// verifies the sweep is a no-op for a freshly active room instead.
	j.sweepStaleMembers(context.Background())
	assert.Equal(t, 0, remover.count())
}

func TestJanitor_SweepRecentlyEndedKeepsFreshEntry(t *testing.T) {
	reg := registry.New(nil)
	r := reg.Create()
	reg.Delete(r.ID, registry.EndReasonAdminClose)
	assert.True(t, reg.RecentlyEnded(r.ID))

	j := New(reg, &fakeRemover{})
	j.sweepRecentlyEnded(context.Background())

	// TTL (30s) has not elapsed yet, so the entry must still be present.
	assert.True(t, reg.RecentlyEnded(r.ID))
}
