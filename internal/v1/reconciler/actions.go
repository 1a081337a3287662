package reconciler

import (
	"context"
	"encoding/json"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/relay"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/room"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
)

// roomForEvent looks up a room by id, sending a targeted room-error and
// returning ok=false if it doesn't exist.
func (rec *Reconciler) roomForEvent(conn types.Connection, roomID types.RoomID) (*room.Room, bool) {
	r, ok := rec.reg.Get(roomID)
	if !ok {
		rec.sendError(conn, "room not found")
		return nil, false
	}
	return r, true
}

func (rec *Reconciler) handlePlayerReady(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.PlayerReadyRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid player-ready payload")
		return
	}
	r, ok := rec.roomForEvent(conn, req.RoomID)
	if !ok {
		return
	}
	if err := r.SetReady(profileID, req.Ready); err != nil {
		rec.sendError(conn, err.Error())
		return
	}

	snap := r.Snapshot()
	built := rec.snap.Build(ctx, snap)
	rec.broadcastRoom(ctx, r, wire.EventPlayersReadyUpdated, wire.PlayersReadyUpdated{
		Players:       built.Players,
		AllReady:      r.AllReady(),
		HostProfileID: built.HostProfileID,
	})
}

func (rec *Reconciler) handleGameSelected(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.GameSelectedRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid game-selected payload")
		return
	}
	r, ok := rec.roomForEvent(conn, req.RoomID)
	if !ok {
		return
	}
	if err := r.SelectGame(profileID, req.Game); err != nil {
		rec.sendError(conn, err.Error())
		return
	}

	snap := r.Snapshot()
	built := rec.snap.Build(ctx, snap)
	rec.broadcastRoom(ctx, r, wire.EventGameSelected, wire.GameSelected{
		Game:          req.Game,
		Players:       built.Players,
		HostProfileID: built.HostProfileID,
	})
}

func (rec *Reconciler) handleStartGame(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.StartGameRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid start-game payload")
		return
	}
	r, ok := rec.roomForEvent(conn, req.RoomID)
	if !ok {
		return
	}
	if err := r.StartGame(profileID); err != nil {
		rec.sendError(conn, err.Error())
		return
	}

	game := r.Snapshot().SelectedGame
	rec.broadcastRoom(ctx, r, wire.EventGameStart, wire.GameStart{Game: game})

	snap := r.Snapshot()
	rec.snap.Emit(ctx, snap, rec.roomConnsSlice(r))
	rec.publishLobby()
}

func (rec *Reconciler) handleRotatePlayers(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.RotatePlayersRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid rotate-players payload")
		return
	}
	r, ok := rec.roomForEvent(conn, req.RoomID)
	if !ok {
		return
	}
	if err := r.Rotate(profileID, req.WinnerProfileID, req.LoserProfileID); err != nil {
		rec.sendError(conn, err.Error())
		return
	}

	snap := r.Snapshot()
	built := rec.snap.Build(ctx, snap)
	rec.broadcastRoom(ctx, r, wire.EventPlayersRotated, wire.PlayersRotated{
		WinnerProfileID: req.WinnerProfileID,
		LoserProfileID:  req.LoserProfileID,
		Players:         built.Players,
	})
}

func (rec *Reconciler) handleUpdatePlayerName(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.UpdatePlayerNameRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid update-player-name payload")
		return
	}
	r, ok := rec.roomForEvent(conn, req.RoomID)
	if !ok {
		return
	}
	if err := r.UpdateDisplayName(profileID, req.PlayerName); err != nil {
		rec.sendError(conn, err.Error())
		return
	}

	snap := r.Snapshot()
	rec.snap.Emit(ctx, snap, rec.roomConnsSlice(r))
}

func (rec *Reconciler) handleRequestRoomSnapshot(ctx context.Context, _ types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.RequestRoomSnapshotRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid request-room-snapshot payload")
		return
	}
	r, ok := rec.roomForEvent(conn, req.RoomID)
	if !ok {
		return
	}
	built := rec.snap.Build(ctx, r.Snapshot())
	conn.Send(wire.EventRoomSnapshot, built)
}

func (rec *Reconciler) handleRequestUserCount(conn types.Connection) {
	rec.mu.Lock()
	count := len(rec.lobbyConns) + len(rec.connRoom)
	rec.mu.Unlock()
	conn.Send(wire.EventUserCountUpdate, wire.UserCountUpdate{Count: count})
}

// handleGameEvent delegates any event not owned by the reconciler
// itself to the EventRelay, for the seated connection's room. Returns
// false if the event isn't a recognized game event at all, so the
// caller can report an unknown-event error instead of a room-layer one.
func (rec *Reconciler) handleGameEvent(profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) bool {
	if !relay.IsGameEvent(envelope.Event) {
		return false
	}

	rec.mu.Lock()
	roomID, ok := rec.connRoom[conn.ID()]
	rec.mu.Unlock()
	if !ok {
		rec.sendError(conn, "not currently in a room")
		return true
	}

	r, ok := rec.reg.Get(roomID)
	if !ok {
		rec.sendError(conn, "room not found")
		return true
	}

	conns := rec.rawRoomConns(roomID)
	if err := relay.Dispatch(r, profileID, envelope.Event, envelope.Payload, conns); err != nil {
		rec.sendError(conn, err.Error())
	}
	return true
}
