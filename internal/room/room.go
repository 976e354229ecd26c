package room

import (
	"sort"
	"sync"
	"time"

	"github.com/mossy-p/flowsync-signaling/internal/models"
)

// Participant is one joined connection within a room
type Participant struct {
	ID          string
	DisplayName string
	HandRaised  bool
	JoinedAt    time.Time
}

// Room is the live state of one room code. Every method other than Lock,
// Unlock and Code requires the caller to hold the room lock.
type Room struct {
	code      string
	createdAt time.Time

	mu           sync.Mutex
	participants map[string]*Participant
	presenter    string
	timer        Timer
	closed       bool
}

func newRoom(code string, now time.Time) *Room {
	return &Room{
		code:         code,
		createdAt:    now,
		participants: make(map[string]*Participant),
		timer:        NewTimer(),
	}
}

// Code returns the room code
func (r *Room) Code() string { return r.code }

// Lock serialises mutations of the room
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room lock
func (r *Room) Unlock() { r.mu.Unlock() }

// CreatedAt is when the room state was created
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Closed reports whether the room has been discarded from its table
func (r *Room) Closed() bool { return r.closed }

// AddParticipant inserts or replaces the record for p.ID
func (r *Room) AddParticipant(p Participant) {
	r.participants[p.ID] = &p
}

// RemoveParticipant deletes a participant. If it held the presenter slot the
// slot is cleared and clearedPresenter is true.
func (r *Room) RemoveParticipant(id string) (removed, clearedPresenter bool) {
	if _, ok := r.participants[id]; !ok {
		return false, false
	}
	delete(r.participants, id)
	if r.presenter == id {
		r.presenter = ""
		return true, true
	}
	return true, false
}

// Participant returns a copy of a participant record
func (r *Room) Participant(id string) (Participant, bool) {
	p, ok := r.participants[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// HasParticipant reports membership
func (r *Room) HasParticipant(id string) bool {
	_, ok := r.participants[id]
	return ok
}

// SetHandRaised updates a participant's hand flag
func (r *Room) SetHandRaised(id string, raised bool) bool {
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.HandRaised = raised
	return true
}

// Len returns the participant count
func (r *Room) Len() int { return len(r.participants) }

// Empty reports whether the room has no participants
func (r *Room) Empty() bool { return len(r.participants) == 0 }

// ParticipantIDs returns the ids of all participants, optionally excluding one
func (r *Room) ParticipantIDs(exclude string) []string {
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	return ids
}

// Participants lists participants in join order
func (r *Room) Participants() []models.ParticipantInfo {
	list := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})

	out := make([]models.ParticipantInfo, 0, len(list))
	for _, p := range list {
		out = append(out, models.ParticipantInfo{
			SocketID:    p.ID,
			DisplayName: p.DisplayName,
			HandRaised:  p.HandRaised,
		})
	}
	return out
}

// Presenter returns the presenter's connection id, or "" when none
func (r *Room) Presenter() string { return r.presenter }

// PresenterRef returns the presenter as a nullable wire value
func (r *Room) PresenterRef() *string {
	if r.presenter == "" {
		return nil
	}
	p := r.presenter
	return &p
}

// ClaimPresenter grants the presenter slot to id if it is free or already
// held by id. id must be a participant.
func (r *Room) ClaimPresenter(id string) bool {
	if !r.HasParticipant(id) {
		return false
	}
	if r.presenter != "" && r.presenter != id {
		return false
	}
	r.presenter = id
	return true
}

// ReleasePresenter clears the slot if id holds it
func (r *Room) ReleasePresenter(id string) bool {
	if r.presenter == "" || r.presenter != id {
		return false
	}
	r.presenter = ""
	return true
}

// Timer returns a pointer to the room timer for in-place transitions
func (r *Room) Timer() *Timer { return &r.timer }

// Summary describes the room with the timer projected to now
func (r *Room) Summary(now time.Time) models.RoomSummary {
	return models.RoomSummary{
		RoomCode:     r.code,
		Participants: r.Participants(),
		Presenter:    r.PresenterRef(),
		Timer:        r.timer.State(now),
		CreatedAt:    r.createdAt,
	}
}
