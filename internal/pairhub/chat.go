package pairhub

import "vidgogo/backend/internal/models"

// SendChat relays a text message to the sender's session peer. The
// session must already be active; delivery is at-most-once and in
// sender order. Messages beyond the rolling rate limit are refused and
// never forwarded.
func (m *ManagerService) SendChat(fromID, text string) error {
	conn, ok := m.Registry.Get(fromID)
	if !ok || conn.SessionID == "" {
		return ErrNotPaired
	}

	sess, ok := m.Sessions.Get(conn.SessionID)
	if !ok || sess.State != models.SessionActive {
		return ErrNotPaired
	}

	if lim := m.limiter(fromID); lim != nil && !lim.Allow() {
		return ErrRateLimited
	}

	peerID, ok := sess.Peer(fromID)
	if !ok {
		return ErrNotPaired
	}
	peer, ok := m.Registry.Get(peerID)
	if !ok {
		return ErrPeerUnavailable
	}

	trySend(peer.Client, models.Frame{
		Type:   models.FrameChatMessage,
		Text:   text,
		SentAt: m.Clock.Now().UnixMilli(),
	})
	return nil
}

// SendTyping relays a typing indicator. Fire-and-forget: no rate limit,
// no delivery guarantee, and no error back to the sender — a stale
// typing flag is harmless.
func (m *ManagerService) SendTyping(fromID string, isTyping bool) {
	conn, ok := m.Registry.Get(fromID)
	if !ok || conn.SessionID == "" {
		return
	}

	sess, ok := m.Sessions.Get(conn.SessionID)
	if !ok {
		return
	}
	peerID, ok := sess.Peer(fromID)
	if !ok {
		return
	}

	if peer, ok := m.Registry.Get(peerID); ok {
		trySend(peer.Client, models.Frame{Type: models.FrameTyping, IsTyping: isTyping})
	}
}
