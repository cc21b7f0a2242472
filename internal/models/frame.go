package models

import "encoding/json"

// Frame types exchanged between client and server. One flat envelope is
// used for every message; Type selects which fields are meaningful.
const (
	FrameJoinQueue   = "join-queue"
	FrameCancelQueue = "cancel-queue"
	FramePaired      = "paired"
	FrameSignal      = "signal"
	FrameActive      = "active"
	FrameChatMessage = "chat-message"
	FrameTyping      = "typing"
	FrameSkip        = "skip"
	FrameEnd         = "end"
	FramePeerLeft    = "peer-left"
	FrameError       = "error"
)

// Signal kinds carried by FrameSignal. The payload is opaque to the
// server (SDP or ICE candidate blobs produced by the browser).
const (
	SignalKindOffer  = "offer"
	SignalKindAnswer = "answer"
	SignalKindICE    = "ice"
)

// Reasons carried by FramePeerLeft.
const (
	ReasonEnd        = "end"
	ReasonSkip       = "skip"
	ReasonDisconnect = "disconnect"
)

// Frame is the JSON envelope for every WebSocket message in both
// directions.
type Frame struct {
	Type string `json:"type"`

	// join-queue
	RegionPreference string `json:"regionPreference,omitempty"`

	// signal (both directions)
	Kind    string          `json:"kind,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// chat-message / typing
	Text     string `json:"text,omitempty"`
	SentAt   int64  `json:"sentAt,omitempty"` // unix milliseconds, server-assigned
	IsTyping bool   `json:"isTyping,omitempty"`

	// paired
	PeerID    string `json:"peerId,omitempty"`
	IsOfferer bool   `json:"isOfferer"`

	// peer-left
	Reason string `json:"reason,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
