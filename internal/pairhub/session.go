package pairhub

import (
	"log"
	"sync"
	"time"

	"vidgogo/backend/internal/models"
	"vidgogo/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Session is the live state machine for one matched pair:
// negotiating -> active -> ended.
type Session struct {
	ID        string
	User1ID   string
	User2ID   string
	State     string
	CreatedAt time.Time

	timer *time.Timer // negotiation deadline, nil once active
}

// Peer returns the other member of the session.
func (s *Session) Peer(userID string) (string, bool) {
	switch userID {
	case s.User1ID:
		return s.User2ID, true
	case s.User2ID:
		return s.User1ID, true
	}
	return "", false
}

// Alerter receives out-of-band notifications about conditions that need
// operator attention (invariant violations).
type Alerter interface {
	Alertf(format string, args ...interface{})
}

// SessionService owns every live session. All transitions go through it
// so that a skip and a concurrent peer disconnect resolve to a single
// winning transition, with the loser a no-op.
type SessionService struct {
	Registry           *Registry
	Matcher            *MatcherService
	Storage            storage.Storage
	NegotiationTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	alerter  Alerter
}

func NewSessionService(reg *Registry, matcher *MatcherService, s storage.Storage, negotiationTimeout time.Duration) *SessionService {
	return &SessionService{
		Registry:           reg,
		Matcher:            matcher,
		Storage:            s,
		NegotiationTimeout: negotiationTimeout,
		sessions:           make(map[string]*Session),
	}
}

// SetAlerter wires the ops alert channel. Optional.
func (ss *SessionService) SetAlerter(a Alerter) {
	ss.alerter = a
}

// Create builds a session for a matched pair, notifies both members
// with "paired" frames and arms the negotiation deadline. If one member
// vanished between match and create, the survivor is re-enqueued.
func (ss *SessionService) Create(a, b QueueEntry) {
	connA, okA := ss.Registry.Get(a.UserID)
	connB, okB := ss.Registry.Get(b.UserID)

	if !okA || !okB {
		if okA {
			ss.requeue(a.UserID, a.Region)
		}
		if okB {
			ss.requeue(b.UserID, b.Region)
		}
		return
	}

	// A matched client already holding a session means the queue let
	// someone in twice. Treated as a bug: reset the stale session to a
	// safe state and carry on with the new pairing.
	if connA.SessionID != "" {
		ss.invariantViolation(a.UserID, connA.SessionID)
	}
	if connB.SessionID != "" {
		ss.invariantViolation(b.UserID, connB.SessionID)
	}

	sess := &Session{
		ID:        uuid.New().String(),
		User1ID:   a.UserID,
		User2ID:   b.UserID,
		State:     models.SessionNegotiating,
		CreatedAt: time.Now(),
	}
	sess.timer = time.AfterFunc(ss.NegotiationTimeout, func() {
		ss.expire(sess.ID)
	})

	ss.mu.Lock()
	ss.sessions[sess.ID] = sess
	ss.mu.Unlock()

	ss.Registry.SetSession(a.UserID, sess.ID)
	ss.Registry.SetSession(b.UserID, sess.ID)

	if err := ss.Storage.SaveSession(&models.Session{
		SessionID: sess.ID,
		User1ID:   a.UserID,
		User2ID:   b.UserID,
		Regions:   pq.StringArray{a.Region, b.Region},
		State:     models.SessionNegotiating,
		StartedAt: sess.CreatedAt,
	}); err != nil {
		log.Printf("ERROR: Failed to save session %s: %v", sess.ID, err)
	}
	if err := ss.Storage.PublishEvent(storage.EventSessionCreated, sess.ID); err != nil {
		log.Printf("WARNING: Failed to publish event for session %s: %v", sess.ID, err)
	}

	// Deterministic offerer: the lexicographically smaller id sends the
	// SDP offer, so both sides never initiate at once.
	aOffers := a.UserID < b.UserID
	trySend(connA.Client, models.Frame{Type: models.FramePaired, PeerID: b.UserID, IsOfferer: aOffers})
	trySend(connB.Client, models.Frame{Type: models.FramePaired, PeerID: a.UserID, IsOfferer: !aOffers})

	log.Printf("Session %s created: %s and %s", sess.ID, a.UserID, b.UserID)
}

// MarkActive transitions the caller's session from negotiating to
// active. The first member's report flips the session; the peer's own
// report lands on the idempotent path, as does any repeated call on an
// active session.
func (ss *SessionService) MarkActive(userID string) error {
	conn, ok := ss.Registry.Get(userID)
	if !ok || conn.SessionID == "" {
		return ErrNotPaired
	}

	ss.mu.Lock()
	sess, ok := ss.sessions[conn.SessionID]
	if !ok {
		ss.mu.Unlock()
		return ErrNotPaired
	}
	if sess.State != models.SessionNegotiating {
		ss.mu.Unlock()
		return nil
	}
	sess.State = models.SessionActive
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	ss.mu.Unlock()

	if err := ss.Storage.MarkSessionActive(conn.SessionID); err != nil {
		log.Printf("ERROR: Failed to mark session %s active: %v", conn.SessionID, err)
	}
	if err := ss.Storage.PublishEvent(storage.EventSessionActive, conn.SessionID); err != nil {
		log.Printf("WARNING: Failed to publish event for session %s: %v", conn.SessionID, err)
	}
	return nil
}

// End tears a session down. The first caller wins; any concurrent End
// on the same session is a no-op. Members other than the initiator are
// notified with a peer-left frame, and on "skip" the still-connected
// non-initiator is re-enqueued (the initiator must issue a fresh
// join-queue).
func (ss *SessionService) End(sessionID, initiatorID, reason string) {
	ss.mu.Lock()
	sess, ok := ss.sessions[sessionID]
	if !ok {
		ss.mu.Unlock()
		return
	}
	sess.State = models.SessionEnded
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	delete(ss.sessions, sessionID)
	members := [2]string{sess.User1ID, sess.User2ID}
	ss.mu.Unlock()

	ss.Registry.ClearSession(members[0])
	ss.Registry.ClearSession(members[1])

	for _, member := range members {
		if member == initiatorID {
			continue
		}
		if conn, ok := ss.Registry.Get(member); ok {
			trySend(conn.Client, models.Frame{Type: models.FramePeerLeft, Reason: reason})
		}
	}

	if err := ss.Storage.CloseSession(sessionID, reason); err != nil {
		log.Printf("ERROR: Failed to close session %s: %v", sessionID, err)
	}
	if err := ss.Storage.PublishEvent(storage.EventSessionEnded, sessionID); err != nil {
		log.Printf("WARNING: Failed to publish event for session %s: %v", sessionID, err)
	}

	if reason == models.ReasonSkip {
		for _, member := range members {
			if member == initiatorID {
				continue
			}
			if conn, ok := ss.Registry.Get(member); ok {
				ss.requeue(member, conn.RegionPreference)
			}
		}
	}

	log.Printf("Session %s ended (reason: %s)", sessionID, reason)
}

// Get returns a snapshot of a live session.
func (ss *SessionService) Get(sessionID string) (Session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	sess, ok := ss.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// List returns snapshots of every live session.
func (ss *SessionService) List() []Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	out := make([]Session, 0, len(ss.sessions))
	for _, sess := range ss.sessions {
		out = append(out, *sess)
	}
	return out
}

// Count returns the number of live (non-ended) sessions.
func (ss *SessionService) Count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// expire ends a session that never reached the active state within the
// negotiation deadline. Both members are freed to re-queue; neither is
// treated as the initiator, so both receive peer-left.
func (ss *SessionService) expire(sessionID string) {
	ss.mu.Lock()
	sess, ok := ss.sessions[sessionID]
	stillNegotiating := ok && sess.State == models.SessionNegotiating
	ss.mu.Unlock()

	if !stillNegotiating {
		return
	}
	log.Printf("WARNING: Session %s stuck in negotiation, ending", sessionID)
	ss.End(sessionID, "", models.ReasonDisconnect)
}

func (ss *SessionService) requeue(userID, region string) {
	if _, err := ss.Matcher.Enqueue(userID, region); err != nil {
		log.Printf("WARNING: Failed to re-enqueue %s: %v", userID, err)
	}
}

func (ss *SessionService) invariantViolation(userID, staleSessionID string) {
	log.Printf("ERROR: invariant violation: client %s matched while still in session %s; resetting", userID, staleSessionID)
	if ss.alerter != nil {
		ss.alerter.Alertf("invariant violation: client %s matched while in session %s", userID, staleSessionID)
	}
	ss.End(staleSessionID, "", models.ReasonDisconnect)
}
