package models

import (
	"time"

	"github.com/lib/pq"
)

// Session lifecycle states.
const (
	SessionNegotiating = "negotiating"
	SessionActive      = "active"
	SessionEnded       = "ended"
)

// Session is the persisted record of a 1-on-1 pairing between two
// anonymous clients. The live state machine is owned by the hub; this
// record exists for the admin CLI and post-hoc inspection, not for chat
// content (messages are relayed, never stored).
type Session struct {
	// SessionID is the unique identifier for the session (UUID).
	SessionID string `gorm:"primaryKey"`
	// User1ID is the anonymous ID of the first member.
	User1ID string `gorm:"index"`
	// User2ID is the anonymous ID of the second member.
	User2ID string `gorm:"index"`
	// Regions holds the region preferences both members enqueued with.
	Regions pq.StringArray `gorm:"type:text[]"`
	// State is one of SessionNegotiating, SessionActive, SessionEnded.
	State string
	// EndReason records why the session ended ("end", "skip", "disconnect").
	EndReason string
	// StartedAt is the timestamp when the pair was matched.
	StartedAt time.Time
	// EndedAt is the timestamp when the session was closed.
	EndedAt time.Time
}
