package chathub

import (
	"encoding/json"
	"fmt"

	"strangerlink/backend/internal/models"
)

// Relay forwards negotiation payloads and indicators between the two
// participants of a session. Payloads are never inspected.
type Relay struct {
	store    *Store
	notifier Notifier
}

// NewRelay returns a relay that delivers through notifier.
func NewRelay(store *Store, notifier Notifier) *Relay {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Relay{store: store, notifier: notifier}
}

// ForwardSignal sends payload to fromUserID's partner.
func (r *Relay) ForwardSignal(sessionID, fromUserID string, payload json.RawMessage) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty signal: %w", ErrInvalidState)
	}
	partner, err := r.touch(sessionID, fromUserID, nil)
	if err != nil {
		return err
	}
	r.notifier.Notify(partner, models.Event{
		Type:      models.EventSignal,
		SessionID: sessionID,
		Signal:    payload,
		From:      fromUserID,
	})
	return nil
}

// SetTyping stores the sender's typing flag and tells the partner.
func (r *Relay) SetTyping(sessionID, userID string, typing bool) error {
	partner, err := r.touch(sessionID, userID, func(sess *models.ChatSession, slot int) {
		sess.Typing[slot] = typing
	})
	if err != nil {
		return err
	}
	r.notifier.Notify(partner, models.Event{
		Type:      models.EventPartnerTyping,
		SessionID: sessionID,
		IsTyping:  &typing,
	})
	return nil
}

// SetQuality stores the sender's connection-quality tag and tells the partner.
func (r *Relay) SetQuality(sessionID, userID, quality string) error {
	partner, err := r.touch(sessionID, userID, func(sess *models.ChatSession, slot int) {
		sess.Quality[slot] = quality
	})
	if err != nil {
		return err
	}
	r.notifier.Notify(partner, models.Event{
		Type:      models.EventPartnerQuality,
		SessionID: sessionID,
		Quality:   quality,
	})
	return nil
}

// touch verifies participancy, applies mutate, refreshes activity and
// returns the partner id. Signals and indicators count as activity so that
// a video call without text messages is not reaped.
func (r *Relay) touch(sessionID, userID string, mutate func(*models.ChatSession, int)) (string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionForLocked(sessionID, userID)
	if err != nil {
		return "", fmt.Errorf("session %s: %w", sessionID, err)
	}
	if mutate != nil {
		mutate(sess, sess.Slot(userID))
	}
	sess.LastActivity = s.now()
	return sess.PartnerOf(userID), nil
}
