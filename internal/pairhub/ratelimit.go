package pairhub

import (
	"sync"
	"time"
)

// Clock abstracts time so the limiter can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock is the Clock used outside of tests.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// MessageLimiter allows at most `limit` events per rolling `window`.
// It keeps the timestamps of recent events; an event is admitted only
// if fewer than `limit` others happened within the last window.
type MessageLimiter struct {
	mu     sync.Mutex
	clock  Clock
	limit  int
	window time.Duration
	sent   []time.Time // events inside the window, oldest first
}

func NewMessageLimiter(clock Clock, limit int, window time.Duration) *MessageLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	if limit < 1 {
		limit = 1
	}
	return &MessageLimiter{
		clock:  clock,
		limit:  limit,
		window: window,
		sent:   make([]time.Time, 0, limit),
	}
}

// Allow records one event if the rolling window has room and reports
// whether it was admitted.
func (l *MessageLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-l.window)

	// Expire events that slid out of the window.
	i := 0
	for i < len(l.sent) && !l.sent[i].After(cutoff) {
		i++
	}
	l.sent = l.sent[i:]

	if len(l.sent) >= l.limit {
		return false
	}
	l.sent = append(l.sent, now)
	return true
}
