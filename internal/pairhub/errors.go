package pairhub

// Error codes carried on "error" frames.
const (
	CodeNotPaired       = "NOT_PAIRED"
	CodeRateLimited     = "RATE_LIMITED"
	CodePeerUnavailable = "PEER_UNAVAILABLE"
	CodeInvalidFrame    = "INVALID_FRAME"
	CodeInternal        = "INTERNAL"
)

// ProtocolError is a client-facing failure. The gateway maps it onto an
// "error" frame sent back to the client whose request failed.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	// ErrNotPaired is returned when a relay or chat operation arrives
	// from a client with no active session.
	ErrNotPaired = &ProtocolError{Code: CodeNotPaired, Message: "no active session"}

	// ErrRateLimited is returned when a client exceeds the chat message
	// rate limit. The message is dropped, not queued.
	ErrRateLimited = &ProtocolError{Code: CodeRateLimited, Message: "message rate limit exceeded"}

	// ErrPeerUnavailable is returned when the session peer disappeared
	// before delivery.
	ErrPeerUnavailable = &ProtocolError{Code: CodePeerUnavailable, Message: "peer is no longer connected"}

	// ErrInvalidFrame is returned for malformed or unknown inbound
	// frames. The frame is dropped; the connection survives.
	ErrInvalidFrame = &ProtocolError{Code: CodeInvalidFrame, Message: "malformed or unknown frame"}
)
