package monitoring

import (
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Subscriber is one receiver of change sets, usually an SSE connection.
type Subscriber struct {
	ID string
	ch chan ChangeSet
}

// Changes returns the subscriber's channel. It is closed when the
// subscriber is removed, including when it falls too far behind.
func (s *Subscriber) Changes() <-chan ChangeSet {
	return s.ch
}

// Hub fans change sets out to subscribers without ever blocking the
// poller. A subscriber that stops draining its buffer is dropped; the
// client notices the closed channel and reconnects with a fresh bootstrap.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscriber)}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID: uuid.New().String(),
		ch: make(chan ChangeSet, subscriberBuffer),
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Unknown IDs are
// a no-op, so it is safe after an overflow drop.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Publish delivers a change set to every subscriber that still has buffer
// room and drops the ones that do not.
func (h *Hub) Publish(cs ChangeSet) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		select {
		case sub.ch <- cs:
		default:
			delete(h.subs, id)
			close(sub.ch)
		}
	}
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
