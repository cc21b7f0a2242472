package pairhub

import (
	"log"
	"sync"
	"time"

	"vidgogo/backend/internal/config"
	"vidgogo/backend/internal/storage"

	"github.com/google/uuid"
)

// QueueEntry is one client waiting for a peer.
type QueueEntry struct {
	Ticket     string
	UserID     string
	Region     string
	EnqueuedAt time.Time
}

// MatchHandler receives a committed pair. By the time it runs both
// entries have already been removed from the queue.
type MatchHandler func(a, b QueueEntry)

// MatcherService pairs waiting clients. It keeps a FIFO bucket per
// region plus the global arrival order: same-region matches happen
// immediately on enqueue, cross-region matches kick in once an entry
// has waited past FallbackAfter. Oldest entry always wins, so nobody
// starves longer than the fallback threshold plus time-to-next-arrival.
type MatcherService struct {
	Registry      *Registry
	Storage       storage.Storage
	Clock         Clock
	FallbackAfter time.Duration

	mu       sync.Mutex
	buckets  map[string][]*QueueEntry
	order    []*QueueEntry
	byUser   map[string]*QueueEntry
	byTicket map[string]*QueueEntry

	onMatch MatchHandler
	quit    chan struct{}
}

// NewMatcherService creates a new Matcher.
func NewMatcherService(reg *Registry, s storage.Storage, fallbackAfter time.Duration) *MatcherService {
	return &MatcherService{
		Registry:      reg,
		Storage:       s,
		Clock:         RealClock{},
		FallbackAfter: fallbackAfter,
		buckets:       make(map[string][]*QueueEntry),
		byUser:        make(map[string]*QueueEntry),
		byTicket:      make(map[string]*QueueEntry),
		quit:          make(chan struct{}),
	}
}

// SetMatchHandler wires the consumer of committed pairs (the session
// manager). Must be called before Enqueue.
func (m *MatcherService) SetMatchHandler(fn MatchHandler) {
	m.onMatch = fn
}

// Run drives the periodic fallback sweep until Stop is called.
func (m *MatcherService) Run() {
	log.Println("Matcher Service started.")

	ticker := time.NewTicker(config.MatchSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.quit:
			return
		}
	}
}

// Stop terminates the Run loop.
func (m *MatcherService) Stop() {
	close(m.quit)
}

// Enqueue adds a client to the queue and immediately attempts a match.
// Calling it again while already queued is a no-op returning the
// existing ticket.
func (m *MatcherService) Enqueue(userID, region string) (string, error) {
	conn, ok := m.Registry.Get(userID)
	if !ok {
		return "", ErrPeerUnavailable
	}
	if conn.State == StatePaired {
		return "", &ProtocolError{Code: CodeInvalidFrame, Message: "already in a session"}
	}

	m.mu.Lock()
	if existing, ok := m.byUser[userID]; ok {
		m.mu.Unlock()
		return existing.Ticket, nil
	}

	entry := &QueueEntry{
		Ticket:     uuid.New().String(),
		UserID:     userID,
		Region:     region,
		EnqueuedAt: m.Clock.Now(),
	}
	m.buckets[region] = append(m.buckets[region], entry)
	m.order = append(m.order, entry)
	m.byUser[userID] = entry
	m.byTicket[entry.Ticket] = entry

	var matched *QueueEntry
	if candidate := m.candidateLocked(entry); candidate != nil {
		m.removeLocked(candidate)
		m.removeLocked(entry)
		matched = candidate
	}
	// The registry write must land before the queue lock drops: the
	// moment it is released a concurrent sweep can commit this entry,
	// and the session state it writes must not be overwritten by a late
	// queued-state write.
	m.Registry.SetQueued(userID, region)
	m.mu.Unlock()

	if err := m.Storage.AddUserToSearchQueue(userID); err != nil {
		log.Printf("WARNING: Failed to mirror queue entry for %s: %v", userID, err)
	}

	if matched != nil {
		m.commit(*matched, *entry)
	}
	return entry.Ticket, nil
}

// Cancel removes a waiting entry by ticket. A ticket that already
// matched (or never existed) is a no-op, never an error: the resulting
// session is unaffected.
func (m *MatcherService) Cancel(ticket string) {
	m.mu.Lock()
	entry, ok := m.byTicket[ticket]
	if ok {
		m.removeLocked(entry)
	}
	m.mu.Unlock()

	if ok {
		m.Registry.SetIdle(entry.UserID)
		m.dropped(entry.UserID)
	}
}

// CancelByUser removes a waiting entry by client id, with the same
// no-op semantics as Cancel.
func (m *MatcherService) CancelByUser(userID string) {
	m.mu.Lock()
	entry, ok := m.byUser[userID]
	if ok {
		m.removeLocked(entry)
	}
	m.mu.Unlock()

	if ok {
		m.Registry.SetIdle(userID)
		m.dropped(userID)
	}
}

// Len returns the number of waiting entries.
func (m *MatcherService) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Sweep pairs up entries that have outlived the cross-region fallback
// threshold and evicts entries whose client is gone. Run calls it on a
// ticker; tests call it directly.
func (m *MatcherService) Sweep() {
	now := m.Clock.Now()

	m.mu.Lock()
	// Evict entries for clients that vanished without cancelling.
	var evicted []string
	for _, entry := range append([]*QueueEntry(nil), m.order...) {
		if _, ok := m.Registry.Get(entry.UserID); !ok {
			m.removeLocked(entry)
			evicted = append(evicted, entry.UserID)
		}
	}

	var stale []*QueueEntry
	for _, entry := range m.order {
		if now.Sub(entry.EnqueuedAt) >= m.FallbackAfter {
			stale = append(stale, entry)
		}
	}

	var pairs [][2]QueueEntry
	for len(stale) >= 2 {
		a, b := stale[0], stale[1]
		stale = stale[2:]
		m.removeLocked(a)
		m.removeLocked(b)
		pairs = append(pairs, [2]QueueEntry{*a, *b})
	}
	m.mu.Unlock()

	for _, userID := range evicted {
		m.dropped(userID)
	}
	for _, pair := range pairs {
		m.commit(pair[0], pair[1])
	}
}

// candidateLocked picks the best peer for a fresh entry: oldest waiter
// in the same region bucket, else the oldest cross-region waiter that
// has already passed the fallback threshold.
func (m *MatcherService) candidateLocked(e *QueueEntry) *QueueEntry {
	for _, other := range m.buckets[e.Region] {
		if other.UserID != e.UserID {
			return other
		}
	}

	now := m.Clock.Now()
	for _, other := range m.order {
		if other.UserID == e.UserID {
			continue
		}
		if now.Sub(other.EnqueuedAt) >= m.FallbackAfter {
			return other
		}
	}
	return nil
}

// removeLocked drops an entry from every index. Safe to call twice.
func (m *MatcherService) removeLocked(e *QueueEntry) {
	if _, ok := m.byTicket[e.Ticket]; !ok {
		return
	}
	delete(m.byTicket, e.Ticket)
	delete(m.byUser, e.UserID)

	bucket := m.buckets[e.Region][:0]
	for _, other := range m.buckets[e.Region] {
		if other != e {
			bucket = append(bucket, other)
		}
	}
	if len(bucket) == 0 {
		delete(m.buckets, e.Region)
	} else {
		m.buckets[e.Region] = bucket
	}

	order := m.order[:0]
	for _, other := range m.order {
		if other != e {
			order = append(order, other)
		}
	}
	m.order = order
}

// commit hands a removed pair to the session manager.
func (m *MatcherService) commit(a, b QueueEntry) {
	m.dropped(a.UserID)
	m.dropped(b.UserID)

	log.Printf("Match found: %s and %s", a.UserID, b.UserID)
	if m.onMatch != nil {
		m.onMatch(a, b)
	}
}

// dropped cleans up the advisory queue mirror after an entry leaves the
// queue for any reason.
func (m *MatcherService) dropped(userID string) {
	if err := m.Storage.RemoveUserFromSearchQueue(userID); err != nil {
		log.Printf("WARNING: Failed to clear queue mirror for %s: %v", userID, err)
	}
}
