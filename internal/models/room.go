package models

import "time"

// TimerStatus is the state of a room's shared countdown
type TimerStatus string

const (
	TimerStopped TimerStatus = "stopped"
	TimerRunning TimerStatus = "running"
	TimerPaused  TimerStatus = "paused"
)

// TimerPhase selects the countdown duration
type TimerPhase string

const (
	PhaseWork       TimerPhase = "work"
	PhaseShortBreak TimerPhase = "short_break"
	PhaseLongBreak  TimerPhase = "long_break"
)

// Phase durations in seconds
const (
	WorkSeconds       = 25 * 60
	ShortBreakSeconds = 5 * 60
	LongBreakSeconds  = 15 * 60
)

// ParsePhase maps a client-supplied phase name to a known phase.
// Anything unrecognised is treated as work.
func ParsePhase(s string) TimerPhase {
	switch TimerPhase(s) {
	case PhaseShortBreak:
		return PhaseShortBreak
	case PhaseLongBreak:
		return PhaseLongBreak
	default:
		return PhaseWork
	}
}

// Duration returns the full length of the phase in seconds
func (p TimerPhase) Duration() int {
	switch p {
	case PhaseShortBreak:
		return ShortBreakSeconds
	case PhaseLongBreak:
		return LongBreakSeconds
	default:
		return WorkSeconds
	}
}

// TimerState is the wire form of a room timer. Timestamps are Unix
// milliseconds, nil when unset.
type TimerState struct {
	Status    TimerStatus `json:"status"`
	Type      TimerPhase  `json:"type"`
	Remaining int         `json:"remaining"`
	StartedAt *int64      `json:"started_at"`
	PausedAt  *int64      `json:"paused_at"`
}

// ParticipantInfo is one entry of a room snapshot
type ParticipantInfo struct {
	SocketID    string `json:"socket_id"`
	DisplayName string `json:"display_name"`
	HandRaised  bool   `json:"hand_raised"`
}

// RoomSummary describes a live room for the operator API
type RoomSummary struct {
	RoomCode     string            `json:"room_code"`
	Participants []ParticipantInfo `json:"participants"`
	Presenter    *string           `json:"presenter"`
	Timer        TimerState        `json:"timer"`
	CreatedAt    time.Time         `json:"created_at"`
}

// PresenceEvent is published on the presence feed
type PresenceEvent struct {
	Kind        string    `json:"kind"`
	RoomCode    string    `json:"room_code"`
	SocketID    string    `json:"socket_id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	At          time.Time `json:"at"`
}

// Presence event kinds
const (
	PresenceRoomOpened        = "opened"
	PresenceRoomClosed        = "closed"
	PresenceParticipantJoined = "participants.joined"
	PresenceParticipantLeft   = "participants.left"
)
