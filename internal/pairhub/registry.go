package pairhub

import "sync"

// Client connection states.
const (
	StateIdle   = "idle"
	StateQueued = "queued"
	StatePaired = "paired"
)

// ClientConnection is the registry's view of one connected client.
type ClientConnection struct {
	ID               string
	Client           Client
	State            string
	RegionPreference string
	SessionID        string
}

// Registry is the single source of truth for which clients exist and
// which session they belong to. Every other component resolves clients
// through it instead of caching liveness locally.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*ClientConnection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*ClientConnection)}
}

// Register adds a client. If the same id is already registered the old
// entry is replaced and its client returned so the caller can close it.
func (r *Registry) Register(id string, c Client) (replaced Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.conns[id]; ok {
		replaced = old.Client
	}
	r.conns[id] = &ClientConnection{ID: id, Client: c, State: StateIdle}
	return replaced
}

// Unregister removes a client and returns a snapshot of its last state,
// so the caller can tear down whatever the client was part of (queue
// entry, session) before any further relay can target it. When c is
// non-nil the entry is only removed if it still belongs to c, so a
// stale connection that was replaced cannot evict its successor.
func (r *Registry) Unregister(id string, c Client) (ClientConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return ClientConnection{}, false
	}
	if c != nil && conn.Client != c {
		return ClientConnection{}, false
	}
	delete(r.conns, id)
	return *conn, true
}

// Get returns a snapshot of the client's registry entry.
func (r *Registry) Get(id string) (ClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok {
		return ClientConnection{}, false
	}
	return *conn, true
}

// SetQueued marks a client as waiting for a match with the given region
// preference.
func (r *Registry) SetQueued(id, region string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[id]; ok {
		conn.State = StateQueued
		conn.RegionPreference = region
	}
}

// SetSession binds a client to a session. Only the session manager
// calls this.
func (r *Registry) SetSession(id, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[id]; ok {
		conn.SessionID = sessionID
		conn.State = StatePaired
	}
}

// ClearSession detaches a client from its session and returns it to the
// idle state. Tolerates ids that are already gone.
func (r *Registry) ClearSession(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[id]; ok {
		conn.SessionID = ""
		conn.State = StateIdle
	}
}

// SetIdle returns a client to the idle state (e.g. after cancelling a
// queue entry).
func (r *Registry) SetIdle(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[id]; ok && conn.State == StateQueued {
		conn.State = StateIdle
	}
}

// Count returns the number of connected clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
