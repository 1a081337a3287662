// Package reconciler implements the MembershipReconciler: the writer of
// room membership for websocket events and Janitor removals, serializing every Room mutation that originates
// from one connection and guaranteeing the join/leave protocols spec'd
// for the lobby. It implements transport.Gateway, so it is the only
// thing the websocket Hub talks to once a connection is accepted.
package reconciler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/broadcaster"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/logging"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/registry"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/room"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/transport"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
	"go.uber.org/zap"
)

// Reconciler maps ephemeral connections to stable profile identities and
// writes room membership for every websocket join, leave, kick, and
// disconnect, and for the Janitor's stale removals, so the invariants in room.Room (exactly
// one host, no duplicate membership) hold under concurrent connections.
type Reconciler struct {
	reg      *registry.Registry
	profiles types.ProfileStore
	snap     *broadcaster.SnapshotBroadcaster
	lobby    *broadcaster.LobbyBroadcaster

	mu sync.Mutex
	// lobbyConns holds every connection not currently seated in a room:
	// the lobby pseudo-channel of spec.md §4.7.
	lobbyConns map[types.ConnectionID]types.Connection
	// roomConns holds, per room, every connection attached to that
	// room's broadcast channel.
	roomConns map[types.RoomID]map[types.ConnectionID]types.Connection
	// connRoom and connProfile are the reverse lookups Disconnect needs:
	// a dropped socket carries no payload to tell us where it was.
	connRoom    map[types.ConnectionID]types.RoomID
	connProfile map[types.ConnectionID]types.ProfileID
}

// New constructs a Reconciler and wires it as the registry's
// OnRoomEnded observer: whatever caused a room to leave the registry
// (empty, host-grace timeout, admin close), the reconciler is the one
// that tells the remaining connections and republishes the lobby.
func New(reg *registry.Registry, profiles types.ProfileStore) *Reconciler {
	rec := &Reconciler{
		reg:         reg,
		profiles:    profiles,
		snap:        broadcaster.New(profiles),
		lobby:       broadcaster.NewLobbyBroadcaster(reg),
		lobbyConns:  make(map[types.ConnectionID]types.Connection),
		roomConns:   make(map[types.RoomID]map[types.ConnectionID]types.Connection),
		connRoom:    make(map[types.ConnectionID]types.RoomID),
		connProfile: make(map[types.ConnectionID]types.ProfileID),
	}
	reg.OnRoomEnded = rec.handleRoomEnded
	return rec
}

var _ transport.Gateway = (*Reconciler)(nil)

// HandleEvent dispatches one decoded wire envelope. It is the single
// entry point the transport Hub calls for every message on every
// connection, lobby or seated.
func (rec *Reconciler) HandleEvent(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	start := time.Now()
	status := "ok"
	defer func() {
		metrics.WebsocketEvents.WithLabelValues(envelope.Event, status).Inc()
		metrics.MessageProcessingDuration.WithLabelValues(envelope.Event).Observe(time.Since(start).Seconds())
	}()

	rec.trackConn(conn)

	switch envelope.Event {
	case wire.EventCreateRoom:
		rec.handleCreateRoom(ctx, profileID, conn, envelope)
	case wire.EventJoinRoom:
		rec.handleJoinRoom(ctx, profileID, conn, envelope)
	case wire.EventLeaveRoom:
		rec.handleLeaveRoom(ctx, profileID, conn, envelope)
	case wire.EventKickPlayer:
		rec.handleKickPlayer(ctx, profileID, conn, envelope)
	case wire.EventUpdatePlayerName:
		rec.handleUpdatePlayerName(ctx, profileID, conn, envelope)
	case wire.EventPlayerReady:
		rec.handlePlayerReady(ctx, profileID, conn, envelope)
	case wire.EventGameSelected:
		rec.handleGameSelected(ctx, profileID, conn, envelope)
	case wire.EventStartGame:
		rec.handleStartGame(ctx, profileID, conn, envelope)
	case wire.EventRotatePlayers:
		rec.handleRotatePlayers(ctx, profileID, conn, envelope)
	case wire.EventRequestRoomSnapshot:
		rec.handleRequestRoomSnapshot(ctx, profileID, conn, envelope)
	case wire.EventRequestUserCount:
		rec.handleRequestUserCount(conn)
	case wire.EventTestMessage:
		conn.Send(wire.EventTestMessage, json.RawMessage(envelope.Payload))
	default:
		if !rec.handleGameEvent(profileID, conn, envelope) {
			status = "unknown_event"
			rec.sendError(conn, "unknown event: "+envelope.Event)
		}
	}
}

// Disconnect is called once by the transport Hub when a connection's
// read loop exits, for any reason (explicit close, network drop, server
// shutdown). A profile that was seated as host gets the grace-window
// treatment via Room.Detach; anyone else is removed outright.
func (rec *Reconciler) Disconnect(ctx context.Context, connID types.ConnectionID) {
	rec.mu.Lock()
	profileID, hasProfile := rec.connProfile[connID]
	roomID, inRoom := rec.connRoom[connID]
	delete(rec.connProfile, connID)
	delete(rec.lobbyConns, connID)
	if !inRoom {
		rec.mu.Unlock()
		return
	}
	rec.mu.Unlock()

	if !hasProfile {
		return
	}

	r, ok := rec.reg.Get(roomID)
	if !ok {
		rec.detachConn(roomID, connID)
		return
	}

	wasHost := r.IsHost(profileID)
	r.Detach(connID)
	rec.detachConn(roomID, connID)

	if wasHost && r.HasMember(profileID) {
		// Member is retained with the host-grace timer armed: advise
		// the rest of the room rather than broadcasting a departure.
		rec.broadcastRoom(ctx, r, wire.EventHostDisconnected, wire.HostDisconnected{
			Message:          "host disconnected, waiting for reconnect",
			ReconnectTimeout: int(types.HostGracePeriod.Seconds()),
		})
		return
	}

	rec.afterDeparture(ctx, r, profileID, "disconnected")
}

func (rec *Reconciler) trackConn(conn types.Connection) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	id := conn.ID()
	if _, ok := rec.connRoom[id]; !ok {
		rec.lobbyConns[id] = conn
	}
}

// attachToRoom moves a connection from the lobby set into a room's
// broadcast channel, recording the reverse lookups Disconnect needs.
func (rec *Reconciler) attachToRoom(roomID types.RoomID, conn types.Connection, profileID types.ProfileID) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	delete(rec.lobbyConns, conn.ID())
	if rec.roomConns[roomID] == nil {
		rec.roomConns[roomID] = make(map[types.ConnectionID]types.Connection)
	}
	rec.roomConns[roomID][conn.ID()] = conn
	rec.connRoom[conn.ID()] = roomID
	rec.connProfile[conn.ID()] = profileID
}

// detachConn removes a connection from a room's channel and returns it
// to the lobby set, without touching Room state itself.
func (rec *Reconciler) detachConn(roomID types.RoomID, connID types.ConnectionID) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if conns, ok := rec.roomConns[roomID]; ok {
		conn := conns[connID]
		delete(conns, connID)
		if len(conns) == 0 {
			delete(rec.roomConns, roomID)
		}
		if conn != nil {
			rec.lobbyConns[connID] = conn
		}
	}
	delete(rec.connRoom, connID)
}

// roomConnsSlice snapshots the connections currently attached to a
// room, reaping any that no longer correspond to a live member (stale
// from an earlier race) per spec.md §4.3 step 6.
func (rec *Reconciler) roomConnsSlice(r *room.Room) []types.Connection {
	rec.mu.Lock()
	conns := rec.roomConns[r.ID]
	var stale []types.ConnectionID
	out := make([]types.Connection, 0, len(conns))
	for connID, conn := range conns {
		profileID := rec.connProfile[connID]
		live, ok := r.ConnectionID(profileID)
		if !ok || live != connID {
			stale = append(stale, connID)
			continue
		}
		out = append(out, conn)
	}
	for _, connID := range stale {
		delete(conns, connID)
		delete(rec.connRoom, connID)
		delete(rec.connProfile, connID)
	}
	rec.mu.Unlock()

	for _, connID := range stale {
		logging.Warn(context.Background(), "reaped straggler connection attached to room channel",
			zap.String("roomId", string(r.ID)), zap.String("connectionId", string(connID)))
	}
	return out
}

// rawRoomConns reads a room's currently attached connections without
// reaping: used by the leave/kick paths, where the departing
// connection is deliberately still "attached" for one final snapshot
// even though Room membership has already been mutated out from under
// it. roomConnsSlice's reap semantics exist for stragglers from
// earlier races, not for the very departure this call is serving.
func (rec *Reconciler) rawRoomConns(roomID types.RoomID) []types.Connection {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	conns := rec.roomConns[roomID]
	out := make([]types.Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (rec *Reconciler) connForProfile(roomID types.RoomID, profileID types.ProfileID) (types.Connection, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for connID, conn := range rec.roomConns[roomID] {
		if rec.connProfile[connID] == profileID {
			return conn, true
		}
	}
	return nil, false
}

func (rec *Reconciler) lobbyConnsSlice() []types.Connection {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]types.Connection, 0, len(rec.lobbyConns))
	for _, c := range rec.lobbyConns {
		out = append(out, c)
	}
	return out
}

// allRoomConnsSlice snapshots every connection currently attached to any
// room, across every room. Used alongside lobbyConnsSlice to build the
// full broadcast set for a lobby republish: a listing change is as
// relevant to a room's own occupants (their room may just have appeared,
// filled up, or disappeared from the list) as it is to connections still
// sitting in the lobby pseudo-channel.
func (rec *Reconciler) allRoomConnsSlice() []types.Connection {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]types.Connection, 0, len(rec.connRoom))
	for roomID := range rec.roomConns {
		for _, c := range rec.roomConns[roomID] {
			out = append(out, c)
		}
	}
	return out
}

func (rec *Reconciler) sendError(conn types.Connection, message string) {
	conn.Send(wire.EventRoomError, wire.RoomError{Message: message})
}

// broadcastRoom sends one event to every connection currently attached
// to r's channel.
func (rec *Reconciler) broadcastRoom(_ context.Context, r *room.Room, event string, payload any) {
	for _, c := range rec.roomConnsSlice(r) {
		c.Send(event, payload)
	}
}

// publishLobby rebuilds the room listing and fans it out to both the
// lobby pseudo-channel and every connection currently seated in a room:
// room occupants need lobby updates too, to see their own room drop off
// the list on close or another room's status flip in real time.
func (rec *Reconciler) publishLobby() {
	conns := append(rec.lobbyConnsSlice(), rec.allRoomConnsSlice()...)
	rec.lobby.Publish(conns)
}

// lookupDisplay resolves a profile's display attributes from
// ProfileStore, per the join protocol's step 1-2: client-supplied
// attributes are never trusted, and an empty/absent field falls back
// to the shared defaults.
func (rec *Reconciler) lookupDisplay(ctx context.Context, profileID types.ProfileID) (types.PlayerDisplay, error) {
	if rec.profiles == nil {
		return types.PlayerDisplay{ProfileID: profileID, Color: types.DefaultColor, Emoji: types.DefaultEmoji}, nil
	}
	record, err := rec.profiles.Read(ctx, profileID)
	if err != nil {
		return types.PlayerDisplay{}, err
	}
	display := types.PlayerDisplay{
		ProfileID:   profileID,
		DisplayName: record.DisplayName,
		Color:       record.Color,
		Emoji:       record.Emoji,
	}
	if display.Color == "" {
		display.Color = types.DefaultColor
	}
	if display.Emoji == "" {
		display.Emoji = types.DefaultEmoji
	}
	return display, nil
}

// handleRoomEnded is the registry's OnRoomEnded hook: whatever ended the
// room (emptied out, host-grace timeout, admin close), every connection
// still attached to it needs the closing notice and the lobby needs a
// refresh.
func (rec *Reconciler) handleRoomEnded(id types.RoomID, reason registry.EndReason) {
	rec.mu.Lock()
	conns := rec.roomConns[id]
	out := make([]types.Connection, 0, len(conns))
	for connID, conn := range conns {
		out = append(out, conn)
		delete(rec.connRoom, connID)
		delete(rec.connProfile, connID)
		rec.lobbyConns[connID] = conn
	}
	delete(rec.roomConns, id)
	rec.mu.Unlock()

	message := "room closed"
	if reason == registry.EndReasonHostTimeout {
		message = "host did not reconnect in time"
	}
	for _, c := range out {
		c.Send(wire.EventRoomClosed, wire.RoomClosed{Reason: string(reason), Message: message})
	}
	for _, c := range rec.lobbyConnsSlice() {
		c.Send(wire.EventRoomClosedBroadcast, wire.RoomClosedBroadcast{RoomID: id})
	}
	rec.publishLobby()
}
