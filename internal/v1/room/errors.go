package room

import (
	"errors"
	"fmt"
)

// Kind classifies a room error so callers (the relay, the admin HTTP
// surface) can map it to a wire RoomError or an HTTP status without
// string matching.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream"
	KindTransient    Kind = "transient"
	KindInvalid      Kind = "invalid"
)

// Error is a typed room-layer error. It wraps an underlying cause so
// errors.Is/errors.As keep working through the Kind classification.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, room.ErrNotFound) match any Error of the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newErr(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinel errors, matched via errors.Is against their Kind.
var (
	ErrNotFound     = newErr(KindNotFound, "not found")
	ErrUnauthorized = newErr(KindUnauthorized, "unauthorized")
	ErrForbidden    = newErr(KindForbidden, "forbidden")
	ErrConflict     = newErr(KindConflict, "conflict")
	ErrUpstream     = newErr(KindUpstream, "upstream failure")
	ErrTransient    = newErr(KindTransient, "transient failure")
	ErrInvalid      = newErr(KindInvalid, "invalid request")
)

// ErrRoomFull reports a join attempt against a room already at MaxPlayers.
var ErrRoomFull = newErr(KindConflict, "room is full")

// ErrRoomNotWaiting reports a mutation that requires RoomStatusWaiting
// while the room has moved past it.
var ErrRoomNotWaiting = newErr(KindConflict, "room is not accepting this action in its current status")

// ErrNotHost reports an authoritative action attempted by a non-host.
var ErrNotHost = newErr(KindUnauthorized, "only the host may perform this action")

// ErrKickSelf reports a host trying to kick themselves.
var ErrKickSelf = newErr(KindForbidden, "cannot kick yourself")

// ErrPlayerNotFound reports an action targeting a profile id absent from the room.
var ErrPlayerNotFound = newErr(KindNotFound, "player not found in room")

// ErrNotEnoughPlayers reports a startGame attempt with fewer than two members.
var ErrNotEnoughPlayers = newErr(KindConflict, "at least two players are required to start")

// ErrNotAllReady reports a startGame attempt while some player is unready.
var ErrNotAllReady = newErr(KindConflict, "not all players are ready")

// ErrNoGameSelected reports a startGame attempt with no selected game.
var ErrNoGameSelected = newErr(KindConflict, "no game selected")
