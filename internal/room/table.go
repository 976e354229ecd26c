package room

import (
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mossy-p/flowsync-signaling/internal/models"
)

// Table owns the live rooms of one process. Rooms are created on first
// acquisition and removed by Destroy once empty.
//
// Lock order is room before table: the table lock is never held while
// waiting for a room lock.
type Table struct {
	rooms map[string]*Room
	mu    sync.RWMutex
	clock clockwork.Clock
}

// NewTable creates an empty room table
func NewTable(clock clockwork.Clock) *Table {
	return &Table{
		rooms: make(map[string]*Room),
		clock: clock,
	}
}

// Acquire returns the locked room for code, creating it if needed. created
// is true when this call made the room.
func (t *Table) Acquire(code string) (*Room, bool) {
	for {
		created := false
		t.mu.Lock()
		r, ok := t.rooms[code]
		if !ok {
			r = newRoom(code, t.clock.Now())
			t.rooms[code] = r
			created = true
		}
		t.mu.Unlock()

		r.Lock()
		if !r.closed {
			return r, created
		}
		// destroyed between lookup and lock; retry against a fresh room
		r.Unlock()
	}
}

// AcquireExisting locks and returns the room for code if it is live
func (t *Table) AcquireExisting(code string) (*Room, bool) {
	t.mu.RLock()
	r, ok := t.rooms[code]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}

	r.Lock()
	if r.closed {
		r.Unlock()
		return nil, false
	}
	return r, true
}

// Destroy discards r from the table. The caller must hold r's lock.
func (t *Table) Destroy(r *Room) {
	r.closed = true

	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.rooms[r.code]; ok && cur == r {
		delete(t.rooms, r.code)
	}
}

// Exists reports whether a live room is registered for code
func (t *Table) Exists(code string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[code]
	return ok
}

// Len returns the number of live rooms
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

// Summaries describes every live room, ordered by code
func (t *Table) Summaries() []models.RoomSummary {
	t.mu.RLock()
	rooms := make([]*Room, 0, len(t.rooms))
	for _, r := range t.rooms {
		rooms = append(rooms, r)
	}
	t.mu.RUnlock()

	now := t.clock.Now()
	out := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.Lock()
		if !r.closed {
			out = append(out, r.Summary(now))
		}
		r.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomCode < out[j].RoomCode })
	return out
}

// Summary describes one live room
func (t *Table) Summary(code string) (models.RoomSummary, bool) {
	r, ok := t.AcquireExisting(code)
	if !ok {
		return models.RoomSummary{}, false
	}
	defer r.Unlock()
	return r.Summary(t.clock.Now()), true
}
