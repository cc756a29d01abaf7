package bus

import (
	"sync"
	"sync/atomic"
)

// Publisher fans events out to live subscribers of a topic.
type Publisher interface {
	Publish(topic string, event Event)
}

// Subscriber attaches to a topic's live event stream.
type Subscriber interface {
	Subscribe(topic string) (<-chan Event, func())
}

// Bus combines both halves of the progress channel. The pipeline holds
// the Publisher side; the transport layer holds the Subscriber side.
type Bus interface {
	Publisher
	Subscriber
}

// Hub is the in-process Bus implementation. It keeps no history: a
// subscriber that joins late misses earlier events and must reconcile via
// the catalog. Subscribers that fall behind their buffer lose events
// rather than stalling the publisher.
type Hub struct {
	mu      sync.RWMutex
	buffer  int
	closed  bool
	topics  map[string]map[*subscription]struct{}
	dropped atomic.Int64
}

type subscription struct {
	ch    chan Event
	topic string
	// removed is guarded by Hub.mu so cancel and Close agree on which of
	// them closes ch.
	removed bool
}

// NewHub constructs a Hub with the given per-subscriber buffer depth.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		buffer: buffer,
		topics: make(map[string]map[*subscription]struct{}),
	}
}

// Publish delivers event to every current subscriber of topic. Delivery to
// each subscriber preserves publish order; delivery across subscribers is
// independent. Publish never blocks.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe attaches a new subscriber to topic. The returned cancel func
// detaches the subscriber and closes its channel; it is safe to call more
// than once.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	sub := &subscription{
		ch:    make(chan Event, h.buffer),
		topic: topic,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub.removed {
			return
		}
		sub.removed = true
		if subs, ok := h.topics[sub.topic]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.topics, sub.topic)
			}
		}
		close(sub.ch)
	}
	return sub.ch, cancel
}

// SubscriberCount reports live subscriptions for a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dropped reports events discarded because a subscriber's buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close terminates every subscription. Subsequent Publish calls are no-ops
// and subsequent Subscribe calls return a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.topics {
		for sub := range subs {
			sub.removed = true
			close(sub.ch)
		}
		delete(h.topics, topic)
	}
}
