// Package relay implements the EventRelay: per-game typed event dispatch
// once a connection is already seated in a room. It classifies each wire
// event as participant (any member may send) or authoritative (host
// only), validates the sender, and re-emits to every connection attached
// to the room.
package relay

import (
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/room"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/wire"
)

// authoritativeEvents requires the sender to currently hold the host
// seat: game-state updates and every microgame lifecycle event. Dropping
// one of these from a non-host is a silent relay failure per spec.md
// §4.6 ("the relay drops and logs others"); the caller still receives a
// targeted room-error.
var authoritativeEvents = map[string]bool{
	wire.EventGameStateUpdate:  true,
	wire.EventMicrogameStart:   true,
	wire.EventMicrogamePlaying: true,
	wire.EventMicrogameEnd:     true,
	wire.EventGameStart:        true,
	wire.EventGameSelected:     true,
}

// participantEvents may be sent by any seated member and echo back to
// every connection including the sender, for deterministic reconciliation.
var participantEvents = map[string]bool{
	wire.EventParticipantMove:   true,
	wire.EventParticipantAction: true,
}

// IsAuthoritative reports whether event requires the sender to be host.
func IsAuthoritative(event string) bool {
	return authoritativeEvents[event]
}

// IsParticipant reports whether event is open to any seated member.
func IsParticipant(event string) bool {
	return participantEvents[event]
}

// IsGameEvent reports whether event belongs to either per-game class this
// relay handles, as opposed to a lobby/membership event the reconciler
// owns directly.
func IsGameEvent(event string) bool {
	return authoritativeEvents[event] || participantEvents[event]
}

// Dispatch validates senderID against r's membership (and host seat, for
// authoritative events) and, on success, re-emits raw to every connection
// in conns (which already includes the sender for participant events, by
// construction of the caller's attachment set). On failure it returns a
// room.Error describing why the event was dropped; the caller is
// responsible for delivering that only to the sender.
func Dispatch(r *room.Room, senderID types.ProfileID, event string, raw []byte, conns []types.Connection) error {
	if !r.HasMember(senderID) {
		return room.ErrPlayerNotFound
	}
	if IsAuthoritative(event) && !r.IsHost(senderID) {
		return room.ErrNotHost
	}

	for _, c := range conns {
		c.SendRaw(event, raw)
	}
	return nil
}
