// Package registry owns the room-id -> Room mapping: creation with
// collision-free id generation, lookup, deletion, and the listing
// projection the lobby and admin HTTP surface read from. It is the only
// package that constructs a room.Room.
package registry

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/room"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
)

// maxCreateAttempts bounds the id-collision retry loop; with a six-digit
// space and single-digit concurrent rooms this never comes close to
// being exhausted in practice.
const maxCreateAttempts = 20

// EndReason classifies why a room left the registry, passed to the
// OnRoomEnded hook so callers can pick the right wire notification.
type EndReason string

const (
	EndReasonEmpty       EndReason = "empty"
	EndReasonHostTimeout EndReason = "host_timeout"
	EndReasonAdminClose  EndReason = "admin_close"
)

// Registry is the sync.Mutex-guarded room-id -> Room map, generalized out
// of a websocket hub's private state so the reconciler, the Janitor, and
// the admin HTTP surface all share one instance.
type Registry struct {
	mu    sync.Mutex
	rooms map[types.RoomID]*room.Room

	// recentlyEnded remembers ids removed within RecentlyEndedTTL so
	// stale listings don't resurrect them mid-race.
	recentlyEnded map[types.RoomID]time.Time

	bus types.Bus

	// OnRoomEnded is invoked (outside the registry lock) whenever a room
	// leaves the registry for any reason. Set once during wiring by the
	// reconciler, which uses it to notify remaining connections and
	// refresh the lobby listing.
	OnRoomEnded func(id types.RoomID, reason EndReason)
}

// New constructs an empty Registry. bus may be nil (single-instance mode).
func New(bus types.Bus) *Registry {
	return &Registry{
		rooms:         make(map[types.RoomID]*room.Room),
		recentlyEnded: make(map[types.RoomID]time.Time),
		bus:           bus,
	}
}

func generateRoomID() types.RoomID {
	n := rand.IntN(900000) + 100000
	return types.RoomID(itoa(n))
}

func itoa(n int) string {
	// Six-digit room codes are always positive and bounded, so a tiny
	// hand digit-extraction loop avoids pulling in strconv for one call
	// site, this package's only numeric-to-string need.
	buf := [6]byte{}
	for i := 5; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}

// Create allocates a new Room with a freshly generated, currently-unused
// id, seats hostProfileID is NOT performed here: callers admit the host
// via the returned Room exactly like any other join, so every seat
// assignment goes through the same Admit path.
func (reg *Registry) Create() *room.Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var id types.RoomID
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		candidate := generateRoomID()
		if _, exists := reg.rooms[candidate]; !exists {
			id = candidate
			break
		}
	}
	if id == "" {
		id = generateRoomID()
	}

	r := room.New(id,
		func(roomID types.RoomID) { reg.end(roomID, EndReasonEmpty) },
		func(roomID types.RoomID) { reg.end(roomID, EndReasonHostTimeout) },
		reg.bus,
	)
	reg.rooms[id] = r
	metrics.ActiveRooms.Inc()
	return r
}

// Get looks up a room by id.
func (reg *Registry) Get(id types.RoomID) (*room.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// Delete idempotently removes a room, used by admin force-close.
func (reg *Registry) Delete(id types.RoomID, reason EndReason) {
	reg.end(id, reason)
}

func (reg *Registry) end(id types.RoomID, reason EndReason) {
	reg.mu.Lock()
	_, existed := reg.rooms[id]
	delete(reg.rooms, id)
	reg.recentlyEnded[id] = time.Now()
	reg.mu.Unlock()

	if existed {
		metrics.ActiveRooms.Dec()
	}

	if reg.OnRoomEnded != nil {
		reg.OnRoomEnded(id, reason)
	}
}

// RecentlyEnded reports whether an id was removed within the last
// RecentlyEndedTTL, so stale listings can filter it out of a race window.
func (reg *Registry) RecentlyEnded(id types.RoomID) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	t, ok := reg.recentlyEnded[id]
	if !ok {
		return false
	}
	return time.Since(t) < types.RecentlyEndedTTL
}

// SweepRecentlyEnded clears entries older than RecentlyEndedTTL. Called
// by the Janitor's 30s tick, not a self-ticking goroutine in this package.
func (reg *Registry) SweepRecentlyEnded() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for id, t := range reg.recentlyEnded {
		if time.Since(t) >= types.RecentlyEndedTTL {
			delete(reg.recentlyEnded, id)
		}
	}
}

// List returns every currently registered room, in no particular order;
// callers filter/sort for their own purposes (lobby listing vs. admin
// surface have different projections).
func (reg *Registry) List() []*room.Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]*room.Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}

// Count reports how many rooms are currently registered.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// EmptyRoomIDs returns the ids of every room with zero seated members,
// for the Janitor's 60s empty-room sweep (a backstop for rooms that
// somehow escaped inline onEmpty cleanup).
func (reg *Registry) EmptyRoomIDs() []types.RoomID {
	reg.mu.Lock()
	rooms := make([]*room.Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	var ids []types.RoomID
	for _, r := range rooms {
		if r.PlayerCount() == 0 {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// StaleRoomIDs returns the ids of rooms whose LastActivityAt exceeds
// types.StalePlayerThreshold, for the Janitor's 5min stale-player sweep.
func (reg *Registry) StaleRoomIDs() []types.RoomID {
	reg.mu.Lock()
	rooms := make([]*room.Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	var ids []types.RoomID
	cutoff := time.Now().Add(-types.StalePlayerThreshold)
	for _, r := range rooms {
		if r.LastActivityAt().Before(cutoff) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
