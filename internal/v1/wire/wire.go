// Package wire defines the JSON wire envelope and named events exchanged
// over the lobby server's bidirectional socket.
package wire

import "encoding/json"

// Envelope is the single message shape carried over the socket: one
// message is one named event with a JSON payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client-to-server event names.
const (
	EventCreateRoom           = "create-room"
	EventJoinRoom             = "join-room"
	EventLeaveRoom            = "leave-room"
	EventKickPlayer           = "kick-player"
	EventUpdatePlayerName     = "update-player-name"
	EventPlayerReady          = "player-ready"
	EventGameSelected         = "game-selected"
	EventStartGame            = "start-game"
	EventRotatePlayers        = "rotate-players"
	EventRequestRoomSnapshot  = "request-room-snapshot"
	EventRequestUserCount     = "request-user-count"
	EventTestMessage          = "test-message"
	EventGameStateUpdate      = "game-state-update"
	EventMicrogameStart       = "microgame-start"
	EventMicrogamePlaying     = "microgame-playing"
	EventMicrogameEnd         = "microgame-end"
	EventParticipantMove      = "participant-move"
	EventParticipantAction    = "participant-action"
)

// Server-to-client event names.
const (
	EventRoomCreated          = "room-created"
	EventRoomSnapshot         = "room-snapshot"
	EventPlayerJoined         = "player-joined"
	EventPlayerLeft           = "player-left"
	EventPlayersReadyUpdated  = "players-ready-updated"
	EventGameStart            = "game-start"
	EventPlayersRotated       = "players-rotated"
	EventPlayerKicked         = "player-kicked"
	EventRoomClosed           = "room-closed"
	EventRoomClosedBroadcast  = "room-closed-broadcast"
	EventHostDisconnected     = "host-disconnected"
	EventHostReconnected      = "host-reconnected"
	EventRoomList             = "room-list"
	EventRoomListUpdated      = "room-list-updated"
	EventRoomError            = "room-error"
	EventUserCountUpdate      = "user-count-update"
)

// RoomListAction values carried on EventRoomListUpdated.
const (
	RoomListActionCreated = "created"
	RoomListActionUpdated = "updated"
	RoomListActionDeleted = "deleted"
)

// Marshal builds an Envelope for the given event and payload.
func Marshal(event string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Payload: raw}, nil
}
