// Package room implements the Room entity: the authoritative in-memory
// state machine for one lobby, its member list, and its host-grace
// reconnect window.
package room

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
)

// Room holds one lobby's authoritative state. All mutation goes through
// locked/unlocked method pairs: exported methods take r.mu, the *Locked
// variants assume it is already held.
type Room struct {
	ID types.RoomID

	mu sync.RWMutex

	hostProfileID types.ProfileID
	status        types.RoomStatus
	selectedGame  types.GameType

	// memberOrder is the join/rotation order, walked to build snapshots
	// and to pick a new host when the current one leaves for good.
	memberOrder *list.List
	members     map[types.ProfileID]*types.PlayerState

	hostGraceTimer    *time.Timer
	hostGraceDeadline time.Time

	createdAt      time.Time
	lastActivityAt time.Time

	// onEmpty fires once the room has no members left at all.
	onEmpty func(types.RoomID)
	// onHostGraceExpired fires if the host's reconnect window elapses
	// with nobody having reclaimed the host seat.
	onHostGraceExpired func(types.RoomID)

	bus types.Bus

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs an empty Room. The first successful Admit call becomes
// its host.
func New(id types.RoomID, onEmpty func(types.RoomID), onHostGraceExpired func(types.RoomID), bus types.Bus) *Room {
	now := time.Now()
	r := &Room{
		ID:                 id,
		status:             types.RoomStatusWaiting,
		memberOrder:        list.New(),
		members:            make(map[types.ProfileID]*types.PlayerState),
		createdAt:          now,
		lastActivityAt:     now,
		onEmpty:            onEmpty,
		onHostGraceExpired: onHostGraceExpired,
		bus:                bus,
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Shutdown cancels the room's background context and waits for any
// in-flight bus publishes to finish, bounded by ctx.
func (r *Room) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.hostGraceTimer != nil {
		r.hostGraceTimer.Stop()
		r.hostGraceTimer = nil
	}
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) touchLocked() {
	r.lastActivityAt = time.Now()
}

// LastActivityAt reports when the room was last mutated, for the
// Janitor's stale-player sweep.
func (r *Room) LastActivityAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivityAt
}

// Status reports the room's current lifecycle state.
func (r *Room) Status() types.RoomStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// HostProfileID reports the current host, which may be disconnected but
// still within its grace window.
func (r *Room) HostProfileID() types.ProfileID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostProfileID
}

// IsHost reports whether the given profile currently holds the host seat.
func (r *Room) IsHost(profileID types.ProfileID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostProfileID == profileID
}

// HasMember reports whether a profile is currently seated in the room
// (connected or, for the host, within its grace window).
func (r *Room) HasMember(profileID types.ProfileID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[profileID]
	return ok
}

// ConnectionID reports the live connection id currently attached to a
// seated profile, if any. Used by the reconciler to reap stragglers: a
// connection attached to a room's broadcast channel that no longer
// matches its member's current connection id is a leftover from an
// earlier race (superseded reconnect, delayed disconnect) and should be
// detached.
func (r *Room) ConnectionID(profileID types.ProfileID) (types.ConnectionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[profileID]
	if !ok || m.ConnectionID == "" {
		return "", false
	}
	return m.ConnectionID, true
}

// PlayerCount reports the number of seated members.
func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Admit seats a profile in the room, assigning host if the room has no
// members yet, or reconnecting an existing member (clearing any pending
// host-grace timer) if the profile already holds a seat.
func (r *Room) Admit(profileID types.ProfileID, connID types.ConnectionID, display types.PlayerDisplay) (isHost bool, reconnected bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.members[profileID]; ok {
		existing.ConnectionID = connID
		existing.Display = display
		existing.DisplayName = display.DisplayName
		if profileID == r.hostProfileID && r.hostGraceTimer != nil {
			r.hostGraceTimer.Stop()
			r.hostGraceTimer = nil
			r.hostGraceDeadline = time.Time{}
		}
		r.touchLocked()
		return profileID == r.hostProfileID, true, nil
	}

	if len(r.members) >= types.MaxPlayers {
		return false, false, ErrRoomFull
	}

	member := &types.PlayerState{
		ProfileID:    profileID,
		ConnectionID: connID,
		DisplayName:  display.DisplayName,
		Display:      display,
	}
	r.members[profileID] = member
	r.memberOrder.PushBack(profileID)

	if r.hostProfileID == "" {
		slog.Info("assigning host", "room", r.ID, "profileId", profileID)
		r.hostProfileID = profileID
	}

	r.touchLocked()
	metrics.RoomPlayers.WithLabelValues(string(r.ID)).Set(float64(len(r.members)))
	return profileID == r.hostProfileID, false, nil
}

// Detach removes a live connection from a member without necessarily
// evicting them: the host keeps their seat through HostGracePeriod,
// everyone else is removed immediately. If that removal empties the
// room, onEmpty fires.
func (r *Room) Detach(profileID types.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var target *types.PlayerState
	for _, m := range r.members {
		if m.ConnectionID == profileID {
			target = m
			break
		}
	}
	if target == nil {
		return
	}

	if target.ProfileID == r.hostProfileID {
		r.startHostGraceLocked()
		target.ConnectionID = ""
		r.touchLocked()
		return
	}

	r.removeMemberLocked(target.ProfileID)
	r.touchLocked()
	r.maybeFireEmptyLocked()
}

// hostGracePeriod defaults to types.HostGracePeriod but is overridable in
// tests that need to observe the timer actually firing.
var hostGracePeriod = types.HostGracePeriod

func setHostGracePeriodForTest(d time.Duration) {
	hostGracePeriod = d
}

func (r *Room) startHostGraceLocked() {
	if r.hostGraceTimer != nil {
		return
	}
	slog.Info("host disconnected, starting grace window", "room", r.ID, "host", r.hostProfileID, "window", hostGracePeriod)
	r.hostGraceDeadline = time.Now().Add(hostGracePeriod)
	r.hostGraceTimer = time.AfterFunc(hostGracePeriod, func() {
		r.handleHostGraceExpired()
	})
}

func (r *Room) handleHostGraceExpired() {
	r.mu.Lock()
	host := r.members[r.hostProfileID]
	stillGone := host != nil && host.ConnectionID == ""
	r.hostGraceTimer = nil
	r.mu.Unlock()

	if !stillGone {
		return
	}

	metrics.HostGraceExpirations.WithLabelValues("no_reconnect").Inc()
	slog.Info("host grace period expired, ending room", "room", r.ID)
	if r.onHostGraceExpired != nil {
		r.onHostGraceExpired(r.ID)
	}
}

// removeMemberLocked deletes a member from both the map and the order
// list. Caller must hold r.mu.
func (r *Room) removeMemberLocked(profileID types.ProfileID) {
	delete(r.members, profileID)
	for e := r.memberOrder.Front(); e != nil; e = e.Next() {
		if e.Value.(types.ProfileID) == profileID {
			r.memberOrder.Remove(e)
			break
		}
	}
	if len(r.members) > 0 {
		metrics.RoomPlayers.WithLabelValues(string(r.ID)).Set(float64(len(r.members)))
	} else {
		metrics.RoomPlayers.DeleteLabelValues(string(r.ID))
	}
}

func (r *Room) maybeFireEmptyLocked() {
	if len(r.members) == 0 && r.onEmpty != nil {
		go r.onEmpty(r.ID)
	}
}

// Remove permanently evicts a profile (an explicit leave, or a host kick)
// and reassigns host if the departing member held that seat.
func (r *Room) Remove(profileID types.ProfileID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[profileID]; !ok {
		return ErrPlayerNotFound
	}

	wasHost := profileID == r.hostProfileID
	r.removeMemberLocked(profileID)

	if wasHost {
		if r.hostGraceTimer != nil {
			r.hostGraceTimer.Stop()
			r.hostGraceTimer = nil
		}
		r.hostProfileID = ""
		if front := r.memberOrder.Front(); front != nil {
			next := front.Value.(types.ProfileID)
			r.hostProfileID = next
			slog.Info("reassigning host after departure", "room", r.ID, "newHost", next)
		}
	}

	r.touchLocked()
	r.maybeFireEmptyLocked()
	return nil
}

// Snapshot is room's own read projection of its state: the domain-level
// analogue of the wire package's RoomSnapshot, which the broadcaster
// converts this into.
type Snapshot struct {
	ID            types.RoomID
	HostProfileID types.ProfileID
	Status        types.RoomStatus
	SelectedGame  types.GameType
	Players       []types.PlayerState
}

// Snapshot returns a read-only copy of the room's state, ordered by
// join/rotation order, safe to hand to a broadcaster without holding
// the room's lock.
func (r *Room) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	players := make([]types.PlayerState, 0, len(r.members))
	for e := r.memberOrder.Front(); e != nil; e = e.Next() {
		id := e.Value.(types.ProfileID)
		if m, ok := r.members[id]; ok {
			players = append(players, *m)
		}
	}
	return Snapshot{
		ID:            r.ID,
		HostProfileID: r.hostProfileID,
		Status:        r.status,
		SelectedGame:  r.selectedGame,
		Players:       players,
	}
}

// Summary returns the RoomSummary projection used by lobby listings and
// the admin HTTP surface.
func (r *Room) Summary() types.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var hostName, hostEmoji string
	if host, ok := r.members[r.hostProfileID]; ok {
		hostName = host.DisplayName
		hostEmoji = host.Display.Emoji
	}
	return types.RoomSummary{
		ID:              r.ID,
		HostProfileID:   r.hostProfileID,
		HostDisplayName: hostName,
		HostEmoji:       hostEmoji,
		PlayerCount:     len(r.members),
		MaxPlayers:      types.MaxPlayers,
		Status:          r.status,
	}
}
