package reconciler

import (
	"context"
	"encoding/json"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/room"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
)

func (rec *Reconciler) handleLeaveRoom(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.LeaveRoomRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid leave-room payload")
		return
	}
	r, ok := rec.reg.Get(req.RoomID)
	if !ok {
		rec.sendError(conn, "room not found")
		return
	}
	if err := r.Remove(profileID); err != nil {
		rec.sendError(conn, err.Error())
		return
	}
	rec.announceDeparture(ctx, r, profileID, "left", conn.ID())
}

func (rec *Reconciler) handleKickPlayer(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.KickPlayerRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid kick-player payload")
		return
	}
	r, ok := rec.reg.Get(req.RoomID)
	if !ok {
		rec.sendError(conn, "room not found")
		return
	}
	if err := r.Kick(profileID, req.ProfileID); err != nil {
		rec.sendError(conn, err.Error())
		return
	}

	targetConn, hasTarget := rec.connForProfile(r.ID, req.ProfileID)
	var targetConnID types.ConnectionID
	if hasTarget {
		targetConnID = targetConn.ID()
		targetConn.Send(wire.EventPlayerKicked, wire.PlayerKicked{
			RoomID:  r.ID,
			Message: "you were kicked from the room",
		})
	}
	rec.announceDeparture(ctx, r, req.ProfileID, "kicked", targetConnID)
}

// announceDeparture implements the reversed leave order of spec.md §5:
// Room.Remove/Kick has already mutated membership (the snapshot these
// reads produce already excludes depConnID's profile), but depConnID is
// still attached to the room's broadcast channel in the reconciler's
// own bookkeeping. The final snapshot and player-left notice are sent
// to every still-attached connection, including the departing one, and
// only afterward is it detached from the channel and returned to the
// lobby set. If depConnID is empty (disconnect with no live socket, or
// a kick of a connection already gone) the detach step is skipped.
func (rec *Reconciler) announceDeparture(ctx context.Context, r *room.Room, departedProfileID types.ProfileID, reason string, depConnID types.ConnectionID) {
	conns := rec.rawRoomConns(r.ID)
	snap := r.Snapshot()
	built := rec.snap.Build(ctx, snap)

	left := wire.PlayerLeft{
		ProfileID: departedProfileID,
		Players:   built.Players,
		RoomID:    r.ID,
		Reason:    reason,
	}
	for _, c := range conns {
		c.Send(wire.EventPlayerLeft, left)
	}
	rec.snap.Emit(ctx, snap, conns)

	if depConnID != "" {
		rec.detachConn(r.ID, depConnID)
	}
	rec.publishLobby()
}

// RemoveStale implements janitor.Remover: the Janitor's stale-activity
// sweep calls back through here so a reaped member still goes through
// the reconciler's standard broadcast and bookkeeping path.
func (rec *Reconciler) RemoveStale(ctx context.Context, roomID types.RoomID, profileID types.ProfileID) {
	r, ok := rec.reg.Get(roomID)
	if !ok {
		return
	}
	if err := r.Remove(profileID); err != nil {
		return
	}
	if conn, ok := rec.connForProfile(roomID, profileID); ok {
		rec.detachConn(roomID, conn.ID())
	}
	rec.afterDeparture(ctx, r, profileID, "stale")
}

// afterDeparture handles the non-host disconnect path and the Janitor's
// RemoveStale path: Room.Detach or Room.Remove has already fully removed
// the member (no grace window applies to a non-host) and the reconciler's bookkeeping has already detached the
// dead connection, so there is no "send the final snapshot to the
// departing connection" step to preserve — it is already gone.
func (rec *Reconciler) afterDeparture(ctx context.Context, r *room.Room, departedProfileID types.ProfileID, reason string) {
	conns := rec.roomConnsSlice(r)
	snap := r.Snapshot()
	built := rec.snap.Build(ctx, snap)

	left := wire.PlayerLeft{
		ProfileID: departedProfileID,
		Players:   built.Players,
		RoomID:    r.ID,
		Reason:    reason,
	}
	for _, c := range conns {
		c.Send(wire.EventPlayerLeft, left)
	}
	rec.snap.Emit(ctx, snap, conns)
	rec.publishLobby()
}
