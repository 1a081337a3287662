// Package janitor runs the periodic cleanup sweeps spec'd in §4.8: an
// empty-room backstop, a stale-activity sweep, and a recently-ended
// cache eviction. The stale-activity sweep removes members through the
// reconciler (Remover). The empty-room sweep ends rooms with
// Registry.Delete, whose OnRoomEnded hook notifies the reconciler, and
// the recently-ended sweep calls Registry.SweepRecentlyEnded directly.
package janitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/registry"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
)

// Remover is the subset of the reconciler the Janitor needs: the
// standard stale-member removal path, so every reaping event still
// goes through the reconciler's bookkeeping and broadcasts.
type Remover interface {
	RemoveStale(ctx context.Context, roomID types.RoomID, profileID types.ProfileID)
}

const (
	emptyRoomSweepInterval     = 60 * time.Second
	staleMemberSweepInterval   = 5 * time.Minute
	recentlyEndedSweepInterval = 30 * time.Second
)

// Janitor owns three independently-ticking goroutines, one per sweep
// kind in spec.md §4.8, stopped together by Shutdown.
type Janitor struct {
	reg     *registry.Registry
	remover Remover

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Janitor. Start must be called to begin sweeping.
func New(reg *registry.Registry, remover Remover) *Janitor {
	return &Janitor{reg: reg, remover: remover}
}

// Start launches the three sweep loops. Safe to call once; calling
// Shutdown stops all of them.
func (j *Janitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	j.wg.Add(3)
	go j.loop(ctx, "empty_rooms", emptyRoomSweepInterval, j.sweepEmptyRooms)
	go j.loop(ctx, "stale_members", staleMemberSweepInterval, j.sweepStaleMembers)
	go j.loop(ctx, "recently_ended", recentlyEndedSweepInterval, j.sweepRecentlyEnded)
}

// Shutdown stops every sweep loop and waits for the in-flight tick, if
// any, to finish.
func (j *Janitor) Shutdown() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

func (j *Janitor) loop(ctx context.Context, name string, interval time.Duration, sweep func(context.Context)) {
	defer j.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx)
			metrics.JanitorSweeps.WithLabelValues(name).Inc()
		}
	}
}

// sweepEmptyRooms is a backstop for rooms that somehow escaped inline
// onEmpty cleanup (room.Room already fires onEmpty in its own goroutine
// on every removal that empties it out, so this should rarely find
// anything in practice).
func (j *Janitor) sweepEmptyRooms(_ context.Context) {
	ids := j.reg.EmptyRoomIDs()
	for _, id := range ids {
		j.reg.Delete(id, registry.EndReasonEmpty)
		metrics.JanitorRoomsRemoved.WithLabelValues("empty_rooms").Inc()
		slog.Info("janitor removed empty room", "room", id)
	}
}

// sweepStaleMembers scans rooms whose lastActivityAt exceeds
// types.StalePlayerThreshold and removes every member through the
// reconciler's standard path, with reason=stale. A room that empties
// out as a consequence ends normally via room.Room's own onEmpty hook.
func (j *Janitor) sweepStaleMembers(ctx context.Context) {
	ids := j.reg.StaleRoomIDs()
	for _, id := range ids {
		r, ok := j.reg.Get(id)
		if !ok {
			continue
		}
		for _, p := range r.Snapshot().Players {
			j.remover.RemoveStale(ctx, id, p.ProfileID)
		}
		metrics.JanitorRoomsRemoved.WithLabelValues("stale_members").Inc()
		slog.Info("janitor swept stale room", "room", id)
	}
}

func (j *Janitor) sweepRecentlyEnded(_ context.Context) {
	j.reg.SweepRecentlyEnded()
}
