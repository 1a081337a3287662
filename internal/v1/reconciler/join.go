package reconciler

import (
	"context"
	"encoding/json"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/logging"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/room"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
	"go.uber.org/zap"
)

func (rec *Reconciler) handleCreateRoom(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.CreateRoomRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid create-room payload")
		return
	}

	r := rec.reg.Create()
	rec.admit(ctx, r, profileID, conn, true)
}

func (rec *Reconciler) handleJoinRoom(ctx context.Context, profileID types.ProfileID, conn types.Connection, envelope wire.Envelope) {
	var req wire.JoinRoomRequest
	if err := json.Unmarshal(envelope.Payload, &req); err != nil {
		rec.sendError(conn, "invalid join-room payload")
		return
	}

	r, ok := rec.reg.Get(req.RoomID)
	if !ok {
		rec.sendError(conn, "room not found")
		return
	}
	rec.admit(ctx, r, profileID, conn, false)
}

// admit implements join protocol steps 1-8 of spec.md §4.3 for both
// create-room (isCreate) and join-room.
func (rec *Reconciler) admit(ctx context.Context, r *room.Room, profileID types.ProfileID, conn types.Connection, isCreate bool) {
	// Steps 1-2: resolve display exclusively from ProfileStore.
	display, err := rec.lookupDisplay(ctx, profileID)
	if err != nil {
		logging.Warn(ctx, "profile lookup failed on join", zap.String("profileId", string(profileID)), zap.Error(err))
		rec.sendError(conn, "profile not found")
		return
	}

	// Step 4: Room.admit.
	isHost, reconnected, err := r.Admit(profileID, conn.ID(), display)
	if err != nil {
		rec.sendError(conn, err.Error())
		return
	}

	// Step 5: attach to the room channel, detach from the lobby channel.
	rec.attachToRoom(r.ID, conn, profileID)

	if reconnected && isHost {
		rec.broadcastRoom(ctx, r, wire.EventHostReconnected, wire.HostReconnected{Message: "host reconnected"})
	}

	// Step 6: reap stragglers, then read the current membership list.
	conns := rec.roomConnsSlice(r)
	snap := r.Snapshot()
	built := rec.snap.Build(ctx, snap)

	if isCreate {
		conn.Send(wire.EventRoomCreated, wire.RoomCreated{
			RoomID:        r.ID,
			Players:       built.Players,
			HostProfileID: built.HostProfileID,
		})
	}

	for _, c := range conns {
		c.Send(wire.EventPlayerJoined, wire.PlayerJoined{
			Players:       built.Players,
			IsHost:        isHost,
			HostProfileID: built.HostProfileID,
			SelectedGame:  built.SelectedGame,
			RoomID:        r.ID,
		})
	}

	// Step 7: canonical snapshot emit.
	rec.snap.Emit(ctx, snap, conns)

	// Step 8: lobby republish.
	rec.publishLobby()
}
