package pairhub

import (
	"errors"
	"log"
	"sync"
	"time"

	"vidgogo/backend/internal/config"
	"vidgogo/backend/internal/models"
	"vidgogo/backend/internal/storage"
)

// InboundFrame is one parsed client frame awaiting dispatch.
type InboundFrame struct {
	Client Client
	Frame  models.Frame
}

// Stats is a point-in-time snapshot of hub occupancy.
type Stats struct {
	Clients  int `json:"clients"`
	Queued   int `json:"queued"`
	Sessions int `json:"sessions"`
}

// ManagerService is the transport gateway: it owns client registration
// and dispatches parsed inbound frames to the matcher, session manager
// and relays. A single Run goroutine consumes the channels, so frames
// from one sender are handled in the order they arrived.
type ManagerService struct {
	Registry *Registry
	Matcher  *MatcherService
	Sessions *SessionService
	Storage  storage.Storage
	Clock    Clock

	RegisterCh   chan Client
	UnregisterCh chan Client
	InboundCh    chan InboundFrame

	chatRateLimit  int
	chatRateWindow time.Duration

	limitMu  sync.Mutex
	limiters map[string]*MessageLimiter
}

// NewManagerService wires the full hub: registry, matcher, session
// manager and the channels the transport feeds.
func NewManagerService(s storage.Storage, cfg *config.Config) *ManagerService {
	registry := NewRegistry()
	matcher := NewMatcherService(registry, s, cfg.MatchFallbackAfter)
	sessions := NewSessionService(registry, matcher, s, cfg.NegotiationTimeout)
	matcher.SetMatchHandler(sessions.Create)

	return &ManagerService{
		Registry: registry,
		Matcher:  matcher,
		Sessions: sessions,
		Storage:  s,
		Clock:    RealClock{},

		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		InboundCh:    make(chan InboundFrame, 256),

		chatRateLimit:  cfg.ChatRateLimit,
		chatRateWindow: cfg.ChatRateWindow,

		limiters: make(map[string]*MessageLimiter),
	}
}

// Run is the hub's main dispatch loop.
func (m *ManagerService) Run() {
	log.Println("Pair hub started.")

	for {
		select {
		case c := <-m.RegisterCh:
			m.register(c)
		case c := <-m.UnregisterCh:
			m.unregister(c)
		case in := <-m.InboundCh:
			m.dispatch(in.Client, in.Frame)
		}
	}
}

func (m *ManagerService) register(c Client) {
	id := c.GetUserID()

	if replaced := m.Registry.Register(id, c); replaced != nil {
		log.Printf("WARNING: Client %s reconnected, closing stale connection", id)
		replaced.Close()
	}

	m.limitMu.Lock()
	m.limiters[id] = NewMessageLimiter(m.Clock, m.chatRateLimit, m.chatRateWindow)
	m.limitMu.Unlock()

	log.Printf("Client %s connected", id)
}

// unregister tears down everything the client was part of. The session
// (if any) is ended before this returns, so no relay can target the
// vanished client afterwards.
func (m *ManagerService) unregister(c Client) {
	id := c.GetUserID()

	conn, ok := m.Registry.Unregister(id, c)
	if !ok {
		return
	}

	if conn.SessionID != "" {
		m.Sessions.End(conn.SessionID, id, models.ReasonDisconnect)
	}
	m.Matcher.CancelByUser(id)

	m.limitMu.Lock()
	delete(m.limiters, id)
	m.limitMu.Unlock()

	c.Close()
	log.Printf("Client %s disconnected", id)
}

func (m *ManagerService) dispatch(c Client, f models.Frame) {
	id := c.GetUserID()

	var err error
	switch f.Type {
	case models.FrameJoinQueue:
		_, err = m.Matcher.Enqueue(id, f.RegionPreference)

	case models.FrameCancelQueue:
		m.Matcher.CancelByUser(id)

	case models.FrameSignal:
		err = m.RelaySignal(id, f.Kind, f.Payload)

	case models.FrameActive:
		err = m.Sessions.MarkActive(id)

	case models.FrameChatMessage:
		err = m.SendChat(id, f.Text)

	case models.FrameTyping:
		m.SendTyping(id, f.IsTyping)

	case models.FrameSkip:
		err = m.endOwnSession(id, models.ReasonSkip)

	case models.FrameEnd:
		err = m.endOwnSession(id, models.ReasonEnd)

	default:
		err = ErrInvalidFrame
	}

	if err != nil {
		m.sendError(c, err)
	}
}

func (m *ManagerService) endOwnSession(id, reason string) error {
	conn, ok := m.Registry.Get(id)
	if !ok || conn.SessionID == "" {
		return ErrNotPaired
	}
	m.Sessions.End(conn.SessionID, id, reason)
	return nil
}

// limiter returns the per-client chat limiter, or nil for a client that
// already unregistered.
func (m *ManagerService) limiter(id string) *MessageLimiter {
	m.limitMu.Lock()
	defer m.limitMu.Unlock()
	return m.limiters[id]
}

// Stats reports current hub occupancy.
func (m *ManagerService) Stats() Stats {
	return Stats{
		Clients:  m.Registry.Count(),
		Queued:   m.Matcher.Len(),
		Sessions: m.Sessions.Count(),
	}
}

// SetAlerter forwards the ops alerter to the session manager.
func (m *ManagerService) SetAlerter(a Alerter) {
	m.Sessions.SetAlerter(a)
}

// sendError maps a failure onto an "error" frame for the client whose
// request failed. Unexpected errors are logged and reported as INTERNAL
// without leaking details.
func (m *ManagerService) sendError(c Client, err error) {
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		log.Printf("ERROR: internal error for client %s: %v", c.GetUserID(), err)
		perr = &ProtocolError{Code: CodeInternal, Message: "internal error"}
	}
	trySend(c, models.Frame{Type: models.FrameError, Code: perr.Code, Message: perr.Message})
}

// trySend delivers a frame without blocking. A full outbound buffer
// means the client is too slow to keep up; the frame is dropped so one
// wedged connection cannot stall anyone else, and the ping/pong
// deadline reaps the connection if it is actually dead.
func trySend(c Client, f models.Frame) bool {
	select {
	case c.GetSendChannel() <- f:
		return true
	default:
		log.Printf("WARNING: Dropping %s frame for slow client %s", f.Type, c.GetUserID())
		return false
	}
}
