package pairhub

import (
	"encoding/json"

	"vidgogo/backend/internal/models"
)

// RelaySignal forwards an opaque offer/answer/ice payload to the
// sender's session peer. The payload is never inspected: SDP and ICE
// blobs belong to the two browsers. Frames from one sender reach the
// peer in the order they were sent, which ICE candidate sequencing
// relies on.
func (m *ManagerService) RelaySignal(fromID, kind string, payload json.RawMessage) error {
	switch kind {
	case models.SignalKindOffer, models.SignalKindAnswer, models.SignalKindICE:
	default:
		return ErrInvalidFrame
	}

	conn, ok := m.Registry.Get(fromID)
	if !ok || conn.SessionID == "" {
		return ErrNotPaired
	}

	sess, ok := m.Sessions.Get(conn.SessionID)
	if !ok {
		return ErrNotPaired
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
		Type:    models.FrameSignal,
		Kind:    kind,
		Payload: payload,
	})
	return nil
}
