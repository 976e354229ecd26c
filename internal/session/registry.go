package session

import "sync"

// Connection is the room context of one live transport link. Values handed
// out by the Registry are copies.
type Connection struct {
	ID          string
	RoomCode    string
	DisplayName string
	HandRaised  bool
}

// Joined reports whether the connection is attached to a room
func (c Connection) Joined() bool {
	return c.RoomCode != ""
}

// Registry maps connection ids to their room context
type Registry struct {
	conns map[string]*Connection
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
	}
}

// Register adds a connection. Registering an existing id is a no-op and
// returns the current entry.
func (r *Registry) Register(id string) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		c = &Connection{ID: id}
		r.conns[id] = c
	}
	return *c
}

// Attach binds a connection to a room, registering it if needed. The hand
// flag is lowered.
func (r *Registry) Attach(id, roomCode, displayName string) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		c = &Connection{ID: id}
		r.conns[id] = c
	}
	c.RoomCode = roomCode
	c.DisplayName = displayName
	c.HandRaised = false
	return *c
}

// Detach clears a connection's room binding without removing it
func (r *Registry) Detach(id string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	prev := *c
	c.RoomCode = ""
	c.HandRaised = false
	return prev, true
}

// Lookup returns the connection with the given id
func (r *Registry) Lookup(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// SetHandRaised updates the hand flag. It returns false if the connection is
// unknown.
func (r *Registry) SetHandRaised(id string, raised bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return false
	}
	c.HandRaised = raised
	return true
}

// Remove deletes a connection and returns its last state. Only one of any
// number of concurrent Remove calls for the same id observes ok == true.
func (r *Registry) Remove(id string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, id)
	return *c, true
}

// Len returns the number of registered connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
