// Package types defines the shared domain vocabulary used across the lobby server.
package types

import (
	"context"
	"sync"
	"time"
)

// --- Core Domain Types ---

// ProfileID is the opaque stable identifier issued by the external profile
// store. Two ProfileIDs are equal iff their canonical string forms match;
// never inferred from a numeric index.
type ProfileID string

// ConnectionID is an opaque per-connection token, valid only for the
// lifetime of one socket. It is reassigned on every reconnect, even for
// the same profile.
type ConnectionID string

// RoomID is the six-digit numeric room code handed out by the RoomRegistry.
type RoomID string

// GameType names one of the out-of-scope microgame rule engines the server
// only relays payloads for (e.g. "pong", "snake", "memory").
type GameType string

// RoomStatus is the lifecycle state of a Room. A Playing room returns to
// Waiting when the host selects a game or ends the game.
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting"
	RoomStatusPlaying RoomStatus = "playing"
	RoomStatusEnded   RoomStatus = "ended"
)

// MaxPlayers is the per-room capacity constant enforced on admit.
const MaxPlayers = 4

// DefaultColor and DefaultEmoji are used whenever the profile store returns
// an empty or missing value for a player's appearance. Client-supplied or
// previously-cached values are never substituted for these.
const (
	DefaultColor = "#FFFFFF"
	DefaultEmoji = "⚪"
)

// HostGracePeriod is the window during which a dropped host may reconnect
// and resume authority before the room is ended.
const HostGracePeriod = 60 * time.Second

// StalePlayerThreshold is how long a room may go without activity before
// the Janitor treats its members as stale.
const StalePlayerThreshold = 10 * time.Minute

// RecentlyEndedTTL is how long a deleted room id is remembered so stale
// listings can filter it out.
const RecentlyEndedTTL = 30 * time.Second

// PlayerDisplay carries the appearance attributes that are always sourced
// from ProfileStore at snapshot time.
type PlayerDisplay struct {
	ProfileID   ProfileID `json:"profileId"`
	DisplayName string    `json:"displayName"`
	Color       string    `json:"color"`
	Emoji       string    `json:"emoji"`
}

// PlayerState is a single member's state inside a Room.
type PlayerState struct {
	ProfileID    ProfileID
	ConnectionID ConnectionID // empty during host grace
	DisplayName  string
	Score        int
	Ready        bool
	Display      PlayerDisplay
}

// HasConnection reports whether this member currently has a live socket
// attached (false while a host is in its grace period).
func (p PlayerState) HasConnection() bool {
	return p.ConnectionID != ""
}

// RoomSummary is the read-only projection of a Room used by lobby listings
// and the admin HTTP surface.
type RoomSummary struct {
	ID              RoomID     `json:"id"`
	HostProfileID   ProfileID  `json:"hostProfileId"`
	HostDisplayName string     `json:"hostDisplayName"`
	HostEmoji       string     `json:"hostEmoji"`
	PlayerCount     int        `json:"playerCount"`
	MaxPlayers      int        `json:"maxPlayers"`
	Status          RoomStatus `json:"status"`
}

// --- Shared Interfaces ---

// ProfileRecord is the normalized shape read from the external profile
// store, regardless of which of its two field-naming conventions the
// store responded with.
type ProfileRecord struct {
	ProfileID   ProfileID
	DisplayName string
	Color       string
	Emoji       string
}

// ProfileStore is the read-through interface to the external profile HTTP
// service. It is never authoritative inside the core beyond what it
// returns for a given read.
type ProfileStore interface {
	Read(ctx context.Context, id ProfileID) (ProfileRecord, error)
}

// MatchRecord is a single append-only match result as returned by the
// external match store.
type MatchRecord struct {
	GameType    GameType
	WinnerID    ProfileID
	WinnerName  string
	WinnerScore int
	LoserID     ProfileID
	LoserName   string
	LoserScore  int
	RoomID      RoomID
	Timestamp   time.Time
}

// MatchStore is the read-through interface to the external match HTTP
// service. The core only ever reads from it.
type MatchStore interface {
	ByGameType(ctx context.Context, game GameType) ([]MatchRecord, error)
	ByPlayer(ctx context.Context, profile ProfileID) ([]MatchRecord, error)
	ByRoom(ctx context.Context, room RoomID, game GameType) ([]MatchRecord, error)
}

// BusPayload is the standardized envelope moved across an optional
// distributed pub/sub bus, mirroring the single-process broadcast shape so
// a future multi-instance deployment has a consistent wire format to adopt.
type BusPayload struct {
	RoomID   string `json:"roomId"`
	Event    string `json:"event"`
	Payload  []byte `json:"payload"`
	SenderID string `json:"senderId"`
}

// Bus defines the interface for an optional distributed pub/sub bus. A nil
// Bus keeps the server in single-instance mode; every implementation must
// treat a nil receiver as a no-op so callers never need a nil check.
type Bus interface {
	Publish(ctx context.Context, roomID string, event string, payload any, senderID string) error
	Subscribe(ctx context.Context, roomID string, wg *sync.WaitGroup, handler func(BusPayload))
	Close() error
}

// Connection is the behavior the room/relay/broadcaster layers need from a
// single attached socket, independent of the transport package.
type Connection interface {
	ID() ConnectionID
	Send(event string, payload any)
	SendRaw(event string, raw []byte)
	Close()
}
