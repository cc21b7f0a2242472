package pairhub_test

import (
	"sync"
	"testing"

	"vidgogo/backend/internal/models"
	"vidgogo/backend/internal/pairhub"

	"github.com/stretchr/testify/assert"
)

// TestCloseLeavesSendUsable verifies Close never closes the Send
// channel: other goroutines may still be mid-send, and a send on a
// closed channel panics even behind select/default.
func TestCloseLeavesSendUsable(t *testing.T) {
	hub := createTestHub(newQuietStorage())
	c := pairhub.NewWebSocketClient(hub, "user_A", nil)

	c.Close()
	c.Close() // idempotent

	assert.NotPanics(t, func() {
		c.GetSendChannel() <- models.Frame{Type: models.FrameChatMessage, Text: "late"}
	})
}

// TestTeardownRaceSurvivesLateSends races a session teardown (which
// sends peer-left to the members) against the hub-side removal and
// Close of one member's connection. The server must survive the
// interleaving where the sender snapshots the client just before it is
// closed.
func TestTeardownRaceSurvivesLateSends(t *testing.T) {
	for i := 0; i < 200; i++ {
		hub := createTestHub(newQuietStorage())
		connectClient(hub, "user_A")
		b := pairhub.NewWebSocketClient(hub, "user_B", nil)
		hub.Registry.Register("user_B", b)

		hub.Matcher.Enqueue("user_A", "eu")
		hub.Matcher.Enqueue("user_B", "eu")
		conn, ok := hub.Registry.Get("user_A")
		assert.True(t, ok)
		assert.NotEmpty(t, conn.SessionID)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Sessions.End(conn.SessionID, "user_A", models.ReasonSkip)
		}()
		go func() {
			defer wg.Done()
			hub.Registry.Unregister("user_B", b)
			b.Close()
		}()
		wg.Wait()
	}
}
