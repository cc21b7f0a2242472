package pairhub_test

import (
	"testing"
	"time"

	"vidgogo/backend/internal/pairhub"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsBurstUpToLimit(t *testing.T) {
	clock := newFakeClock()
	lim := pairhub.NewMessageLimiter(clock, 3, 2*time.Second)

	for i := 0; i < 3; i++ {
		assert.True(t, lim.Allow(), "event %d should fit the window", i)
	}
	assert.False(t, lim.Allow(), "the fourth event must be refused")
}

func TestLimiterWindowSlides(t *testing.T) {
	clock := newFakeClock()
	lim := pairhub.NewMessageLimiter(clock, 2, 2*time.Second)

	assert.True(t, lim.Allow())
	clock.Advance(1500 * time.Millisecond)
	assert.True(t, lim.Allow())
	assert.False(t, lim.Allow())

	// The first event slides out, the second is still inside.
	clock.Advance(600 * time.Millisecond)
	assert.True(t, lim.Allow())
	assert.False(t, lim.Allow())

	clock.Advance(2 * time.Second)
	assert.True(t, lim.Allow())
}

func TestLimiterRefusalDoesNotConsume(t *testing.T) {
	clock := newFakeClock()
	lim := pairhub.NewMessageLimiter(clock, 1, 2*time.Second)

	assert.True(t, lim.Allow())
	for i := 0; i < 10; i++ {
		assert.False(t, lim.Allow())
	}

	// Refused attempts must not extend the window.
	clock.Advance(2*time.Second + time.Millisecond)
	assert.True(t, lim.Allow())
}

func TestLimiterClampsLimit(t *testing.T) {
	lim := pairhub.NewMessageLimiter(newFakeClock(), 0, time.Second)
	assert.True(t, lim.Allow())
	assert.False(t, lim.Allow())
}
