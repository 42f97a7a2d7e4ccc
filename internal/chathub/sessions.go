package chathub

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"strangerlink/backend/internal/models"
)

// SessionStore creates, looks up and destroys paired chat sessions.
type SessionStore struct {
	store *Store
}

// NewSessionStore returns the session view of store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// CreateSession pairs first and second in category. Both users are removed
// from every waiting queue. It fails with ErrInvalidState when the ids are
// empty or equal, or when either user already has an active session.
func (ss *SessionStore) CreateSession(first, second, category string) (models.ChatSession, error) {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.createSessionLocked(first, second, category)
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("create session %s/%s: %w", first, second, err)
	}
	slog.Info("session created", "session_id", sess.ID, "user1", first, "user2", second, "category", category)
	return sess.Snapshot(), nil
}

// GetByUser returns the id of userID's active session.
func (ss *SessionStore) GetByUser(userID string) (string, bool) {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUser[userID]
	return id, ok
}

// GetByID returns a snapshot of the session.
func (ss *SessionStore) GetByID(sessionID string) (models.ChatSession, bool) {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return models.ChatSession{}, false
	}
	return sess.Snapshot(), true
}

// IsParticipant reports whether userID takes part in the active session.
func (ss *SessionStore) IsParticipant(sessionID, userID string) bool {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.sessionForLocked(sessionID, userID)
	return err == nil
}

// PartnerOf returns the other participant of session. Callers must check
// IsParticipant first; for a non-participant the result is meaningless.
func (ss *SessionStore) PartnerOf(session models.ChatSession, userID string) string {
	return session.PartnerOf(userID)
}

// AppendMessage adds body to the session log on behalf of fromUserID.
func (ss *SessionStore) AppendMessage(sessionID, fromUserID, body string) (models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return models.Message{}, fmt.Errorf("empty message: %w", ErrInvalidState)
	}
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionForLocked(sessionID, fromUserID)
	if err != nil {
		return models.Message{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	msg := sess.Append(fromUserID, body, models.CategoryText, s.now())
	s.totalMessages++
	if u, ok := s.users[fromUserID]; ok {
		u.LastActive = msg.Timestamp
	}
	return msg, nil
}

// GetMessages returns the messages newer than since (all when since is nil),
// projected for readerID.
func (ss *SessionStore) GetMessages(sessionID, readerID string, since *time.Time) ([]models.MessageView, bool, error) {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionForLocked(sessionID, readerID)
	if err != nil {
		return nil, false, fmt.Errorf("session %s: %w", sessionID, err)
	}
	msgs := sess.Since(since)
	views := make([]models.MessageView, len(msgs))
	for i, m := range msgs {
		views[i] = models.ViewFor(m, readerID)
	}
	return views, sess.Active, nil
}

// EndSession marks the session inactive and removes it from both indexes.
// A second call for the same id returns false.
func (ss *SessionStore) EndSession(sessionID string) (models.ChatSession, bool) {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.endSessionLocked(sessionID)
	if ok {
		slog.Info("session removed", "session_id", sessionID)
	}
	return sess, ok
}

// EndSessionFor ends sessionID on behalf of userID, who must participate in it.
func (ss *SessionStore) EndSessionFor(sessionID, userID string) (models.ChatSession, error) {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionForLocked(sessionID, userID); err != nil {
		return models.ChatSession{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	sess, _ := s.endSessionLocked(sessionID)
	slog.Info("session ended by participant", "session_id", sessionID, "user_id", userID)
	return sess, nil
}

// Count returns the number of active sessions.
func (ss *SessionStore) Count() int {
	s := ss.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
