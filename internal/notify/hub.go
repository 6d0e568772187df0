package notify

import (
	"sync"

	"github.com/zeohealth/zeo-server/internal/types"
)

// subscriberBuffer bounds how many undelivered events a subscriber may
// lag behind before broadcasts start skipping it.
const subscriberBuffer = 16

// Subscriber receives progress events over a buffered channel. The
// channel is closed when the subscriber is removed from the hub.
type Subscriber struct {
	ch chan types.ProgressEvent
}

// Events returns the subscriber's event channel.
func (s *Subscriber) Events() <-chan types.ProgressEvent {
	return s.ch
}

// Hub fans job progress out to all connected subscribers. Delivery is
// best-effort: a full subscriber buffer drops the event for that
// subscriber rather than blocking the broadcast.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ch: make(chan types.ProgressEvent, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// more than once for the same subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Broadcast delivers the event to every current subscriber without
// blocking. Per-subscriber ordering follows send order.
func (h *Hub) Broadcast(event types.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			// Subscriber is not draining; skip rather than stall the rest.
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
