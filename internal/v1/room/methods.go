package room

import (
	"container/list"
	"log/slog"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
)

// SetReady toggles a player's ready flag. Changing readiness after the
// game has started has no meaningful effect but is not itself an error,
// since a client racing the startGame broadcast should not see a failure
// for stale intent.
func (r *Room) SetReady(profileID types.ProfileID, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[profileID]
	if !ok {
		return ErrPlayerNotFound
	}
	m.Ready = ready
	r.touchLocked()
	return nil
}

// AllReady reports whether every seated player is ready. A room with no
// members is vacuously not ready.
func (r *Room) AllReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.members) == 0 {
		return false
	}
	for _, m := range r.members {
		if !m.Ready {
			return false
		}
	}
	return true
}

// SelectGame records the host's chosen game and clears readiness: per
// invariant 6, selecting (or changing) a game always clears readySet. The
// host may re-pick between rounds, which returns a Playing room to
// Waiting. Only the host may call this.
func (r *Room) SelectGame(profileID types.ProfileID, game types.GameType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profileID != r.hostProfileID {
		return ErrNotHost
	}
	r.selectedGame = game
	r.status = types.RoomStatusWaiting
	r.clearReadyLocked()
	r.touchLocked()
	return nil
}

func (r *Room) clearReadyLocked() {
	for _, m := range r.members {
		m.Ready = false
	}
}

// StartGame transitions the room from waiting to playing. Only the host
// may call this, and only once a game is selected and every player is
// ready.
func (r *Room) StartGame(profileID types.ProfileID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profileID != r.hostProfileID {
		return ErrNotHost
	}
	if r.status != types.RoomStatusWaiting {
		return ErrRoomNotWaiting
	}
	if r.selectedGame == "" {
		return ErrNoGameSelected
	}
	if len(r.members) < 2 {
		return ErrNotEnoughPlayers
	}
	for _, m := range r.members {
		if !m.Ready {
			return ErrNotAllReady
		}
	}

	r.status = types.RoomStatusPlaying
	r.clearReadyLocked()
	r.touchLocked()
	slog.Info("game started", "room", r.ID, "game", r.selectedGame)
	return nil
}

// Rotate applies the winner-stays rule after one microgame round: the
// winner's score increments and the loser moves to the back of the
// rotation order. With exactly 2 members the order never changes — only
// readiness is affected. With exactly 3, the winner always takes slot 0
// and the loser always takes the last slot, since the one remaining
// member has nowhere else to go. With 4 or more, the winner is only
// promoted to the front when winner and loser are currently the
// slot-0/slot-1 pair (in either order); otherwise the winner's position
// is left untouched and only the loser moves, per the tie-break edge
// case — everyone but the loser keeps their relative order. Only the
// host may call this.
func (r *Room) Rotate(hostProfileID, winnerID, loserID types.ProfileID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hostProfileID != r.hostProfileID {
		return ErrNotHost
	}
	winner, ok := r.members[winnerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if _, ok := r.members[loserID]; !ok {
		return ErrPlayerNotFound
	}

	winner.Score++

	if r.memberOrder.Len() > 2 {
		var winnerElem, loserElem *list.Element
		var slot0, slot1 types.ProfileID
		if front := r.memberOrder.Front(); front != nil {
			slot0 = front.Value.(types.ProfileID)
			if second := front.Next(); second != nil {
				slot1 = second.Value.(types.ProfileID)
			}
		}
		for e := r.memberOrder.Front(); e != nil; e = e.Next() {
			switch e.Value.(types.ProfileID) {
			case winnerID:
				winnerElem = e
			case loserID:
				loserElem = e
			}
		}

		// With exactly 3 members there is only one other member, so the
		// winner always leads and the loser always trails; with 4+, the
		// promotion only happens when {winner, loser} are the current
		// top two seats.
		topPair := r.memberOrder.Len() == 3 ||
			(slot0 == winnerID && slot1 == loserID) ||
			(slot0 == loserID && slot1 == winnerID)
		if topPair {
			r.memberOrder.MoveToFront(winnerElem)
		}
		r.memberOrder.MoveToBack(loserElem)
	} else {
		r.clearReadyLocked()
	}

	r.touchLocked()
	slog.Info("players rotated", "room", r.ID, "winner", winnerID, "loser", loserID, "winnerScore", winner.Score)
	return nil
}

// Kick is a host-initiated removal: it returns ErrNotHost unless
// hostProfileID holds the host seat and ErrKickSelf if the host targets
// itself, and otherwise removes targetID exactly as Remove does.
func (r *Room) Kick(hostProfileID, targetID types.ProfileID) error {
	r.mu.RLock()
	isHost := hostProfileID == r.hostProfileID
	r.mu.RUnlock()
	if !isHost {
		return ErrNotHost
	}
	if hostProfileID == targetID {
		return ErrKickSelf
	}
	return r.Remove(targetID)
}

// UpdateDisplayName lets a seated member rename themselves after joining.
// This is the one PlayerDisplay field the broadcaster's per-snapshot
// ProfileStore re-read never overwrites (only color/emoji are refreshed,
// per spec.md §4.5), so a rename here sticks until the member reconnects,
// when Admit resets the name to the one ProfileStore returns.
func (r *Room) UpdateDisplayName(profileID types.ProfileID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[profileID]
	if !ok {
		return ErrPlayerNotFound
	}
	m.DisplayName = name
	m.Display.DisplayName = name
	r.touchLocked()
	return nil
}

// EndGame returns the room to the waiting lobby state, clearing
// readiness so the next round requires a fresh confirmation from
// everyone. Only the host may call this.
func (r *Room) EndGame(profileID types.ProfileID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profileID != r.hostProfileID {
		return ErrNotHost
	}
	r.status = types.RoomStatusWaiting
	r.selectedGame = ""
	for _, m := range r.members {
		m.Ready = false
	}
	r.touchLocked()
	return nil
}
