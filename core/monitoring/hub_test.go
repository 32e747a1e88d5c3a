package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()
	require.Equal(t, 2, hub.Len())
	require.NotEqual(t, a.ID, b.ID)

	hub.Publish(ChangeSet{ToRevision: 7})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case cs := <-sub.Changes():
			assert.Equal(t, uint64(7), cs.ToRevision)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the change set")
		}
	}

	hub.Unsubscribe(a.ID)
	hub.Unsubscribe(b.ID)
	assert.Zero(t, hub.Len())

	_, ok := <-a.Changes()
	assert.False(t, ok, "channel must close on unsubscribe")
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	slow := hub.Subscribe()
	fast := hub.Subscribe()

	// One more than the subscriber buffer; the undrained subscriber gets
	// dropped instead of blocking the publisher.
	for i := 0; i <= subscriberBuffer; i++ {
		hub.Publish(ChangeSet{ToRevision: uint64(i + 1)})
		// Keep the fast subscriber drained.
		select {
		case <-fast.Changes():
		case <-time.After(time.Second):
			t.Fatal("fast subscriber starved")
		}
	}

	assert.Equal(t, 1, hub.Len(), "slow subscriber must be dropped")

	received := 0
	for range slow.Changes() {
		received++
	}
	assert.Equal(t, subscriberBuffer, received, "buffered change sets stay readable until the close")

	// Unsubscribing an already dropped subscriber is a no-op.
	hub.Unsubscribe(slow.ID)
	hub.Unsubscribe(fast.ID)
	assert.Zero(t, hub.Len())
}
