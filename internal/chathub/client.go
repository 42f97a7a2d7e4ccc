package chathub

import "strangerlink/backend/internal/models"

// Client is the interface for any type of connection (e.g., WebSocket, Telegram).
// It abstracts the underlying communication mechanism, allowing the hub to deliver
// events to different client types uniformly.
type Client interface {
	// GetUserID returns the opaque identifier assigned to the connection.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	GetSendChannel() chan<- models.Event

	// Run starts the client's pumps.
	Run()
	// Close shuts down the connection and its send channel. The hub must have
	// unregistered the client before Close is called.
	Close()
}

// Notifier delivers an event to a single user. Implementations must not
// block on slow receivers; the core calls Notify after releasing its lock.
type Notifier interface {
	Notify(userID string, ev models.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(userID string, ev models.Event)

// Notify calls f.
func (f NotifierFunc) Notify(userID string, ev models.Event) { f(userID, ev) }

type discardNotifier struct{}

func (discardNotifier) Notify(string, models.Event) {}
