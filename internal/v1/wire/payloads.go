package wire

import "github.com/arcadehub/lobby-server/backend/go/internal/v1/types"

// PlayerView is the wire shape of one player inside a room-snapshot, per
// spec §4.5.
type PlayerView struct {
	ProfileID    types.ProfileID    `json:"profileId"`
	ConnectionID types.ConnectionID `json:"connectionId,omitempty"`
	DisplayName  string             `json:"displayName"`
	Score        int                `json:"score"`
	Ready        bool               `json:"ready"`
	Color        string             `json:"color"`
	Emoji        string             `json:"emoji"`
}

// RoomSnapshot is the canonical room state event clients reconcile to.
type RoomSnapshot struct {
	RoomID        types.RoomID     `json:"roomId"`
	HostProfileID types.ProfileID  `json:"hostProfileId"`
	Status        types.RoomStatus `json:"status"`
	SelectedGame  types.GameType   `json:"selectedGame,omitempty"`
	Players       []PlayerView     `json:"players"`
}

// CreateRoomRequest is the client-to-server create-room payload. The
// naming-attribute fields are accepted but ignored: ProfileStore wins.
type CreateRoomRequest struct {
	PlayerName string          `json:"playerName,omitempty"`
	ProfileID  types.ProfileID `json:"profileId"`
	ColorID    string          `json:"colorId,omitempty"`
	Emoji      string          `json:"emoji,omitempty"`
	Color      string          `json:"color,omitempty"`
}

// JoinRoomRequest is the client-to-server join-room payload.
type JoinRoomRequest struct {
	RoomID     types.RoomID    `json:"roomId"`
	PlayerName string          `json:"playerName,omitempty"`
	ProfileID  types.ProfileID `json:"profileId"`
	ColorID    string          `json:"colorId,omitempty"`
	Emoji      string          `json:"emoji,omitempty"`
	Color      string          `json:"color,omitempty"`
}

// LeaveRoomRequest is the client-to-server leave-room payload.
type LeaveRoomRequest struct {
	RoomID    types.RoomID    `json:"roomId"`
	ProfileID types.ProfileID `json:"profileId,omitempty"`
}

// KickPlayerRequest is the client-to-server kick-player payload (host only).
type KickPlayerRequest struct {
	RoomID    types.RoomID    `json:"roomId"`
	ProfileID types.ProfileID `json:"profileId"`
}

// UpdatePlayerNameRequest is the client-to-server update-player-name payload.
type UpdatePlayerNameRequest struct {
	RoomID     types.RoomID `json:"roomId"`
	PlayerName string       `json:"playerName"`
}

// PlayerReadyRequest is the client-to-server player-ready payload.
type PlayerReadyRequest struct {
	RoomID types.RoomID `json:"roomId"`
	Ready  bool         `json:"ready"`
}

// GameSelectedRequest is the client-to-server game-selected payload (host only).
type GameSelectedRequest struct {
	RoomID types.RoomID   `json:"roomId"`
	Game   types.GameType `json:"game"`
}

// StartGameRequest is the client-to-server start-game payload (host only).
type StartGameRequest struct {
	RoomID types.RoomID `json:"roomId"`
}

// RotatePlayersRequest is the client-to-server rotate-players payload (host only).
type RotatePlayersRequest struct {
	RoomID          types.RoomID    `json:"roomId"`
	WinnerProfileID types.ProfileID `json:"winnerProfileId"`
	LoserProfileID  types.ProfileID `json:"loserProfileId"`
}

// RequestRoomSnapshotRequest is the client-to-server request-room-snapshot payload.
type RequestRoomSnapshotRequest struct {
	RoomID types.RoomID `json:"roomId"`
}

// RoomCreated is sent to the creator only.
type RoomCreated struct {
	RoomID        types.RoomID    `json:"roomId"`
	Players       []PlayerView    `json:"players"`
	HostProfileID types.ProfileID `json:"hostProfileId"`
}

// PlayerJoined is broadcast to the room channel on every admit.
type PlayerJoined struct {
	Players       []PlayerView    `json:"players"`
	IsHost        bool            `json:"isHost"`
	HostProfileID types.ProfileID `json:"hostProfileId"`
	SelectedGame  types.GameType  `json:"selectedGame,omitempty"`
	RoomID        types.RoomID    `json:"roomId"`
}

// PlayerLeft is broadcast to the room channel on every removal.
type PlayerLeft struct {
	ProfileID types.ProfileID `json:"profileId"`
	Players   []PlayerView    `json:"players"`
	RoomID    types.RoomID    `json:"roomId"`
	Reason    string          `json:"reason,omitempty"`
}

// PlayersReadyUpdated is broadcast whenever the ready set changes.
type PlayersReadyUpdated struct {
	Players       []PlayerView    `json:"players"`
	AllReady      bool            `json:"allReady"`
	HostProfileID types.ProfileID `json:"hostProfileId"`
}

// GameSelected is broadcast after a host selects a game.
type GameSelected struct {
	Game          types.GameType  `json:"game"`
	Players       []PlayerView    `json:"players"`
	HostProfileID types.ProfileID `json:"hostProfileId"`
}

// GameStart is broadcast when startGame succeeds.
type GameStart struct {
	Game types.GameType `json:"game"`
}

// PlayersRotated is broadcast after a winner-stays rotation.
type PlayersRotated struct {
	WinnerProfileID types.ProfileID `json:"winnerProfileId"`
	LoserProfileID  types.ProfileID `json:"loserProfileId"`
	Players         []PlayerView    `json:"players"`
}

// PlayerKicked is sent to the kicked connection only.
type PlayerKicked struct {
	RoomID  types.RoomID `json:"roomId"`
	Message string       `json:"message"`
}

// RoomClosed is sent to remaining connections when a room ends.
type RoomClosed struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// RoomClosedBroadcast is the lobby-wide notice that a room disappeared.
type RoomClosedBroadcast struct {
	RoomID types.RoomID `json:"roomId"`
}

// HostDisconnected is an advisory sent to remaining members when the host drops.
type HostDisconnected struct {
	Message          string `json:"message"`
	ReconnectTimeout int    `json:"reconnectTimeout"`
}

// HostReconnected is an advisory sent when the host returns inside the grace window.
type HostReconnected struct {
	Message string `json:"message"`
}

// RoomListEntry is one row of a joinable-room listing.
type RoomListEntry struct {
	ID              types.RoomID     `json:"id"`
	HostDisplayName string           `json:"hostDisplayName"`
	HostEmoji       string           `json:"hostEmoji"`
	PlayerCount     int              `json:"playerCount"`
	MaxPlayers      int              `json:"maxPlayers"`
	Status          types.RoomStatus `json:"status"`
}

// RoomList is the full joinable-room listing.
type RoomList struct {
	Rooms []RoomListEntry `json:"rooms"`
}

// RoomListUpdated is a differential lobby notice.
type RoomListUpdated struct {
	RoomID types.RoomID   `json:"roomId"`
	Action string         `json:"action"`
	Room   *RoomListEntry `json:"room,omitempty"`
}

// RoomError is a targeted error sent only to the originating connection.
type RoomError struct {
	Message string `json:"message"`
}

// UserCountUpdate reports the total connected-user count.
type UserCountUpdate struct {
	Count int `json:"count"`
}
