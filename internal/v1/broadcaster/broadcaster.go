// Package broadcaster builds the canonical room-snapshot and lobby-list
// wire payloads and fans them out to every connection currently attached
// to a room or to the lobby pseudo-channel. It never mutates Room state;
// it only reads a Snapshot/RoomSummary projection already taken under
// the room lock and re-reads ProfileStore for fresh appearance.
package broadcaster

import (
	"context"
	"sort"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/logging"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/registry"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/room"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
	"go.uber.org/zap"
)

// SnapshotBroadcaster emits the canonical room-snapshot event, the single
// source of truth clients reconcile against.
type SnapshotBroadcaster struct {
	profiles types.ProfileStore
}

// New constructs a SnapshotBroadcaster backed by the given ProfileStore.
func New(profiles types.ProfileStore) *SnapshotBroadcaster {
	return &SnapshotBroadcaster{profiles: profiles}
}

// Build refreshes every member's color/emoji from ProfileStore and
// returns the wire-ready RoomSnapshot. A failed or timed-out profile read
// falls back to defaults for that member rather than aborting the whole
// snapshot: a single flaky profile must not stall the room.
func (b *SnapshotBroadcaster) Build(ctx context.Context, snap room.Snapshot) wire.RoomSnapshot {
	players := make([]wire.PlayerView, 0, len(snap.Players))
	for _, p := range snap.Players {
		color, emoji := types.DefaultColor, types.DefaultEmoji
		if b.profiles != nil {
			if record, err := b.profiles.Read(ctx, p.ProfileID); err == nil {
				if record.Color != "" {
					color = record.Color
				}
				if record.Emoji != "" {
					emoji = record.Emoji
				}
			} else {
				logging.Warn(ctx, "profile store read failed during snapshot, using defaults",
					zap.String("profileId", string(p.ProfileID)), zap.Error(err))
			}
		}
		players = append(players, wire.PlayerView{
			ProfileID:    p.ProfileID,
			ConnectionID: p.ConnectionID,
			DisplayName:  p.DisplayName,
			Score:        p.Score,
			Ready:        p.Ready,
			Color:        color,
			Emoji:        emoji,
		})
	}

	return wire.RoomSnapshot{
		RoomID:        snap.ID,
		HostProfileID: snap.HostProfileID,
		Status:        snap.Status,
		SelectedGame:  snap.SelectedGame,
		Players:       players,
	}
}

// Emit builds the snapshot and fans it out, unconditionally including the
// connection that triggered the mutation: the originator's own client
// must reconcile to the same snapshot everyone else sees.
func (b *SnapshotBroadcaster) Emit(ctx context.Context, snap room.Snapshot, conns []types.Connection) wire.RoomSnapshot {
	out := b.Build(ctx, snap)
	for _, c := range conns {
		c.Send(wire.EventRoomSnapshot, out)
	}
	return out
}

// LobbyBroadcaster maintains the joinable-room listing and fans it out to
// every connection that needs it: both lobby-pseudo-channel connections
// and room occupants (who need to see their own room disappear on close).
type LobbyBroadcaster struct {
	reg *registry.Registry
}

// NewLobbyBroadcaster constructs a LobbyBroadcaster reading from the given Registry.
func NewLobbyBroadcaster(reg *registry.Registry) *LobbyBroadcaster {
	return &LobbyBroadcaster{reg: reg}
}

// Build returns the current joinable-room listing: rooms in Waiting or
// Playing, under capacity, and not in the recently-ended set, sorted by
// player count descending.
func (b *LobbyBroadcaster) Build() wire.RoomList {
	rooms := b.reg.List()
	entries := make([]wire.RoomListEntry, 0, len(rooms))
	for _, r := range rooms {
		if b.reg.RecentlyEnded(r.ID) {
			continue
		}
		status := r.Status()
		if status != types.RoomStatusWaiting && status != types.RoomStatusPlaying {
			continue
		}
		summary := r.Summary()
		if summary.PlayerCount >= types.MaxPlayers {
			continue
		}
		entries = append(entries, wire.RoomListEntry{
			ID:              summary.ID,
			HostDisplayName: summary.HostDisplayName,
			HostEmoji:       summary.HostEmoji,
			PlayerCount:     summary.PlayerCount,
			MaxPlayers:      summary.MaxPlayers,
			Status:          summary.Status,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PlayerCount > entries[j].PlayerCount
	})

	return wire.RoomList{Rooms: entries}
}

// Publish builds the current listing and sends it to every given
// connection (the union of lobby connections and room occupants).
func (b *LobbyBroadcaster) Publish(conns []types.Connection) wire.RoomList {
	list := b.Build()
	for _, c := range conns {
		c.Send(wire.EventRoomList, list)
	}
	return list
}

// PublishUpdate sends only the differential room-list-updated notice, for
// clients that track the list incrementally; it does not send the full
// listing, which is what Publish does.
func (b *LobbyBroadcaster) PublishUpdate(conns []types.Connection, roomID types.RoomID, action string, entry *wire.RoomListEntry) {
	update := wire.RoomListUpdated{RoomID: roomID, Action: action, Room: entry}
	for _, c := range conns {
		c.Send(wire.EventRoomListUpdated, update)
	}
}
