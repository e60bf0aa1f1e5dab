// Package notify fans checkout events out to live subscribers and admins.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is a single session notification.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

const subscriberBuffer = 8

// Hub delivers session events to subscribers of that session.
// Slow subscribers lose events rather than block publishers.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	log    *zap.Logger
	closed bool
}

// NewHub creates an empty Hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
		log:  log.Named("events"),
	}
}

// Subscribe registers a listener for sessionID. The returned cancel func
// must be called once the listener goes away; it closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(sessionID, ch) })
	}
}

func (h *Hub) remove(sessionID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.subs, sessionID)
	}
}

// Publish sends eventType to every subscriber of sessionID.
func (h *Hub) Publish(sessionID, eventType string) {
	ev := Event{Type: eventType, At: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- ev:
		default:
			h.log.Debug("dropping event for slow subscriber",
				zap.String("session", sessionID), zap.String("type", eventType))
		}
	}
}

// Subscribers reports how many listeners sessionID has.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, sessionID)
	}
	h.closed = true
}
