package chathub

import (
	"log/slog"
	"sync"

	"strangerlink/backend/internal/models"
)

// EventPublisher receives a copy of every delivered event, e.g. a Redis
// channel consumed by analytics.
type EventPublisher interface {
	PublishEvent(userID string, ev models.Event) error
}

// Hub keeps the live client connections and routes events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client

	tap EventPublisher
}

// NewHub creates an empty hub. tap may be nil.
func NewHub(tap EventPublisher) *Hub {
	return &Hub{
		clients: make(map[string]Client),
		tap:     tap,
	}
}

// Register attaches c, replacing any older client for the same user.
func (h *Hub) Register(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.GetUserID()] = c
}

// Unregister detaches c if it is still the registered client for its user.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.GetUserID()]; ok && cur == c {
		delete(h.clients, c.GetUserID())
	}
}

// Client returns the client registered for userID.
func (h *Hub) Client(userID string) (Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	return c, ok
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify hands ev to userID's client without blocking. Events for unknown
// users and for clients whose buffer is full are dropped.
func (h *Hub) Notify(userID string, ev models.Event) {
	delivered := false
	h.mu.RLock()
	if c, ok := h.clients[userID]; ok {
		select {
		case c.GetSendChannel() <- ev:
			delivered = true
		default:
			slog.Warn("dropping event for slow client", "user_id", userID, "event", ev.Type)
		}
	}
	h.mu.RUnlock()

	if !delivered {
		slog.Debug("event not delivered", "user_id", userID, "event", ev.Type)
	}
	if h.tap != nil {
		if err := h.tap.PublishEvent(userID, ev); err != nil {
			slog.Error("failed to publish event", "user_id", userID, "event", ev.Type, "err", err)
		}
	}
}
