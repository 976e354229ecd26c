package room

import (
	"time"

	"github.com/mossy-p/flowsync-signaling/internal/models"
)

// Timer is a room's shared countdown. While running, Remaining holds the
// value at the last transition and the live value is derived from StartedAt.
type Timer struct {
	Status    models.TimerStatus
	Phase     models.TimerPhase
	Remaining int
	StartedAt time.Time
	PausedAt  time.Time
}

// NewTimer returns a stopped work timer
func NewTimer() Timer {
	return Timer{
		Status:    models.TimerStopped,
		Phase:     models.PhaseWork,
		Remaining: models.WorkSeconds,
	}
}

// Start runs the timer from the full duration of phase. Any previous state,
// including paused time, is discarded.
func (t *Timer) Start(phase models.TimerPhase, now time.Time) {
	t.Status = models.TimerRunning
	t.Phase = phase
	t.Remaining = phase.Duration()
	t.StartedAt = now
	t.PausedAt = time.Time{}
}

// Pause freezes a running timer. It returns false, leaving the timer
// untouched, when the timer is not running.
func (t *Timer) Pause(now time.Time) bool {
	if t.Status != models.TimerRunning {
		return false
	}
	t.Remaining = t.RemainingAt(now)
	t.Status = models.TimerPaused
	t.PausedAt = now
	return true
}

// Reset stops the timer and rewinds it to a full work phase
func (t *Timer) Reset() {
	*t = NewTimer()
}

// RemainingAt is the authoritative remaining time in whole seconds
func (t Timer) RemainingAt(now time.Time) int {
	if t.Status != models.TimerRunning {
		return t.Remaining
	}
	elapsed := int(now.Sub(t.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	if remaining := t.Remaining - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// State returns the wire form with Remaining projected to now
func (t Timer) State(now time.Time) models.TimerState {
	return models.TimerState{
		Status:    t.Status,
		Type:      t.Phase,
		Remaining: t.RemainingAt(now),
		StartedAt: unixMilli(t.StartedAt),
		PausedAt:  unixMilli(t.PausedAt),
	}
}

func unixMilli(ts time.Time) *int64 {
	if ts.IsZero() {
		return nil
	}
	ms := ts.UnixMilli()
	return &ms
}
