package feed

import (
	"log/slog"
	"sync"

	"courier/internal/constants"
	"courier/internal/metrics"
)

// Subscription is a cancellable handle on the change feed. Events arrive on
// Events() with at-least-once semantics; a subscriber that falls too far
// behind has events dropped and is expected to re-fetch on the next one.
type Subscription struct {
	id     int64
	scope  Scope
	events chan Event
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Cancel detaches the subscription and closes its event channel. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s.id)
		close(s.events)
	})
}

// Hub fans mutations of the message set out to scoped subscribers. It carries
// no state about the messages themselves: consumers re-derive their views.
type Hub struct {
	mu       sync.RWMutex
	subs     map[int64]*Subscription
	nextID   int64
	sequence int64
	closed   bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]*Subscription)}
}

// Subscribe registers a scoped subscriber. The caller must Cancel the
// subscription when its owning view goes away.
func (h *Hub) Subscribe(scope Scope) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		scope:  scope,
		events: make(chan Event, constants.FeedClientSendBufferSize),
		hub:    h,
	}
	if !h.closed {
		h.subs[sub.id] = sub
	}
	return sub
}

// Publish delivers the event to every subscription whose scope matches.
// Delivery never blocks the publisher: a full subscriber buffer drops the
// event, which is tolerable because consumers re-fetch entire views.
func (h *Hub) Publish(event Event) {
	metrics.FeedEventsPublished.Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.scope.Matches(event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			metrics.FeedEventsDropped.Inc()
			slog.Warn("dropped feed event for slow subscriber",
				"component", "feed", "viewer_id", sub.scope.ViewerID, "kind", event.Kind)
		}
	}
}

// NextSequence numbers outbound websocket dispatches.
func (h *Hub) NextSequence() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sequence++
	return h.sequence
}

// Shutdown cancels every live subscription.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	slog.Info("shutdown complete", "component", "feed")
}

func (h *Hub) remove(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}
