package pairhub_test

import (
	"fmt"
	"sync"
	"testing"

	"vidgogo/backend/internal/pairhub"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterReplaces(t *testing.T) {
	reg := pairhub.NewRegistry()
	first := newMockClient("user_A")
	second := newMockClient("user_A")

	assert.Nil(t, reg.Register("user_A", first))
	replaced := reg.Register("user_A", second)
	assert.Equal(t, pairhub.Client(first), replaced)
	assert.Equal(t, 1, reg.Count())
}

// TestRegistryStaleUnregister simulates the teardown of a replaced
// connection racing its successor: the stale client must not be able to
// evict the new one.
func TestRegistryStaleUnregister(t *testing.T) {
	reg := pairhub.NewRegistry()
	stale := newMockClient("user_A")
	fresh := newMockClient("user_A")

	reg.Register("user_A", stale)
	reg.Register("user_A", fresh)

	_, removed := reg.Unregister("user_A", stale)
	assert.False(t, removed)
	assert.Equal(t, 1, reg.Count())

	conn, removed := reg.Unregister("user_A", fresh)
	assert.True(t, removed)
	assert.Equal(t, pairhub.Client(fresh), conn.Client)
	assert.Equal(t, 0, reg.Count())
}

func TestRegistryStateTransitions(t *testing.T) {
	reg := pairhub.NewRegistry()
	reg.Register("user_A", newMockClient("user_A"))

	reg.SetQueued("user_A", "eu")
	conn, _ := reg.Get("user_A")
	assert.Equal(t, pairhub.StateQueued, conn.State)
	assert.Equal(t, "eu", conn.RegionPreference)

	reg.SetSession("user_A", "sess-1")
	conn, _ = reg.Get("user_A")
	assert.Equal(t, pairhub.StatePaired, conn.State)
	assert.Equal(t, "sess-1", conn.SessionID)

	// SetIdle only applies to queued clients, never to a paired one.
	reg.SetIdle("user_A")
	conn, _ = reg.Get("user_A")
	assert.Equal(t, pairhub.StatePaired, conn.State)

	reg.ClearSession("user_A")
	conn, _ = reg.Get("user_A")
	assert.Equal(t, pairhub.StateIdle, conn.State)
	assert.Empty(t, conn.SessionID)
}

func TestRegistryGetReturnsSnapshot(t *testing.T) {
	reg := pairhub.NewRegistry()
	reg.Register("user_A", newMockClient("user_A"))

	conn, _ := reg.Get("user_A")
	conn.SessionID = "tampered"

	fresh, _ := reg.Get("user_A")
	assert.Empty(t, fresh.SessionID, "mutating a snapshot must not touch the registry")
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := pairhub.NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("user_%d", n)
			c := newMockClient(id)
			reg.Register(id, c)
			reg.SetQueued(id, "eu")
			if n%2 == 0 {
				reg.Unregister(id, c)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, reg.Count())
}
