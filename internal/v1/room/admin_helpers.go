package room

import (
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
)

// Admin/host-only action helper functions - pure business logic, fully
// testable without a Room instance.

// actionType names one authoritative (host-only) room action. The relay
// package classifies game events with its own table, not with this one.
type actionType string

const (
	ActionKickPlayer    actionType = "kick-player"
	ActionSelectGame    actionType = "game-selected"
	ActionStartGame     actionType = "start-game"
	ActionRotatePlayers actionType = "rotate-players"
	ActionEndGame       actionType = "end-game"
)

// authoritativeActions is the set of wire event names that require the
// sender to currently hold the host seat.
var authoritativeActions = map[string]actionType{
	"kick-player":    ActionKickPlayer,
	"game-selected":  ActionSelectGame,
	"start-game":     ActionStartGame,
	"rotate-players": ActionRotatePlayers,
	"end-game":       ActionEndGame,
}

// IsAuthoritativeEvent reports whether a wire event name requires host
// authorization before it reaches a Room mutation method.
func IsAuthoritativeEvent(event string) bool {
	_, ok := authoritativeActions[event]
	return ok
}

// ValidateHostAction checks whether profileID may perform an
// authoritative action on this room, without mutating anything.
func (r *Room) ValidateHostAction(profileID types.ProfileID) error {
	if !r.IsHost(profileID) {
		return ErrNotHost
	}
	return nil
}
