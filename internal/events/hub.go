// Package events fans session events out to websocket subscribers.
package events

import (
	"log/slog"
	"sync"

	"github.com/ashureev/chef-interview/internal/domain"
)

const defaultBuffer = 32

// Subscription receives the events of one session until it is cancelled or
// the session is closed.
type Subscription struct {
	C    <-chan domain.Event
	Done <-chan struct{}

	hub       *Hub
	sessionID string
	sub       *subscriber
}

// Cancel detaches the subscription from its hub.
func (s *Subscription) Cancel() {
	s.hub.unsubscribe(s.sessionID, s.sub)
}

type subscriber struct {
	events chan domain.Event
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub tracks subscribers per session.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*subscriber]struct{}
	buffer int
	logger *slog.Logger
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		active: make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber for sessionID.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &subscriber{
		events: make(chan domain.Event, h.buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if _, exists := h.active[sessionID]; !exists {
		h.active[sessionID] = make(map[*subscriber]struct{})
	}
	h.active[sessionID][sub] = struct{}{}
	n := len(h.active[sessionID])
	h.mu.Unlock()

	h.logger.Info("Event subscriber registered", "session_id", sessionID, "subscribers", n)
	return &Subscription{C: sub.events, Done: sub.done, hub: h, sessionID: sessionID, sub: sub}
}

func (h *Hub) unsubscribe(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.active[sessionID]
	if !ok {
		return
	}
	if _, exists := subs[sub]; !exists {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.active, sessionID)
	}
	sub.close()
	h.logger.Info("Event subscriber unregistered", "session_id", sessionID)
}

// Notify delivers event to every subscriber of its session. Slow
// subscribers lose events rather than stall the caller.
func (h *Hub) Notify(event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.active[event.SessionID] {
		select {
		case sub.events <- event:
		default:
			h.logger.Warn("Event subscriber lagging, dropping event",
				"session_id", event.SessionID, "event_type", event.Type)
		}
	}
}

// Subscribers returns the number of subscribers for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[sessionID])
}

// CloseSession ends every subscription for sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.active[sessionID]
	if !ok {
		return
	}
	for sub := range subs {
		sub.close()
	}
	delete(h.active, sessionID)
	h.logger.Info("Event subscribers closed", "session_id", sessionID, "count", len(subs))
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, subs := range h.active {
		for sub := range subs {
			sub.close()
		}
		delete(h.active, sessionID)
	}
}
