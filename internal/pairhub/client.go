package pairhub

import "vidgogo/backend/internal/models"

// Client is the interface for one connected client's transport channel.
// It abstracts the underlying communication mechanism so the hub can
// manage connections without knowing the wire format.
type Client interface {
	// GetUserID returns the anonymous identifier assigned to the client.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes outbound frames
	// to. It is a send-only channel with a bounded buffer; the hub drops
	// frames rather than block when the buffer is full.
	GetSendChannel() chan<- models.Frame

	// Run starts the client's read and write pumps.
	Run()

	// Close shuts down the client's outbound channel and connection.
	Close()
}
