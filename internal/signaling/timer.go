package signaling

import (
	"context"
	"time"

	"github.com/mossy-p/flowsync-signaling/internal/models"
	"github.com/mossy-p/flowsync-signaling/internal/room"
	"github.com/mossy-p/flowsync-signaling/internal/session"
	"github.com/rs/zerolog/log"
)

// transition mutates a room timer; it returns false when the event is a
// no-op and nothing should be replicated
type transition func(t *room.Timer, now time.Time) bool

func (c *Controller) startTimer(connID string, phase models.TimerPhase) {
	c.applyTimer(connID, "started", func(t *room.Timer, now time.Time) bool {
		t.Start(phase, now)
		return true
	})
}

func (c *Controller) pauseTimer(connID string) {
	c.applyTimer(connID, "paused", func(t *room.Timer, now time.Time) bool {
		return t.Pause(now)
	})
}

func (c *Controller) resetTimer(connID string) {
	c.applyTimer(connID, "reset", func(t *room.Timer, _ time.Time) bool {
		t.Reset()
		return true
	})
}

// applyTimer runs fn under the room lock, broadcasts the resulting state to
// the whole room and mirrors it to the shared store
func (c *Controller) applyTimer(connID, action string, fn transition) {
	var (
		changed  bool
		roomCode string
		state    models.TimerState
	)

	c.withRoom(connID, func(_ session.Connection, r *room.Room) {
		now := c.clock.Now()
		if !fn(r.Timer(), now) {
			return
		}
		changed = true
		roomCode = r.Code()
		state = r.Timer().State(now)

		c.broadcast(r, "", models.SignalMessage{
			Type:    models.SignalTypeTimerUpdate,
			Payload: state,
		})
	})
	if !changed {
		return
	}

	log.Info().
		Str("conn_id", connID).
		Str("room_code", roomCode).
		Str("type", string(state.Type)).
		Int("remaining", state.Remaining).
		Msgf("timer %s", action)

	c.mirrorTimer(roomCode, state)
}

// mirrorTimer is best-effort; the in-memory timer stays authoritative
func (c *Controller) mirrorTimer(roomCode string, state models.TimerState) {
	if c.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.StoreWriteTimeout)
	defer cancel()

	if err := c.mirror.MirrorTimer(ctx, roomCode, state); err != nil {
		log.Warn().Err(err).Str("room_code", roomCode).Msg("failed to mirror timer state")
	}
}
