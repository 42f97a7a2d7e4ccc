package chathub

import (
	"sync"
	"time"

	"strangerlink/backend/internal/models"
)

// Store is the single in-memory data store shared by the registry, the
// matcher, the session store and the reaper. Every mutation runs under mu.
// Nothing here performs I/O, so critical sections stay short.
type Store struct {
	mu sync.Mutex

	users map[string]*models.User

	// queues holds the ordered waiting list per category; queuedIn is the
	// reverse index used to keep a user in at most one queue.
	queues   map[string][]string
	queuedIn map[string]string

	sessions map[string]*models.ChatSession
	byUser   map[string]string

	totalSessions int
	totalMessages int

	now func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store with one queue per known category.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		users:    make(map[string]*models.User),
		queues:   make(map[string][]string),
		queuedIn: make(map[string]string),
		sessions: make(map[string]*models.ChatSession),
		byUser:   make(map[string]string),
		now:      time.Now,
	}
	for _, c := range models.Categories {
		s.queues[c] = nil
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats is a point-in-time snapshot of store counters.
type Stats struct {
	ActiveUsers    int            `json:"active_users"`
	ConnectedUsers int            `json:"connected_users"`
	Waiting        map[string]int `json:"waiting"`
	ActiveSessions int            `json:"active_sessions"`
	TotalSessions  int            `json:"total_sessions"`
	TotalMessages  int            `json:"total_messages"`
}

// Stats takes a snapshot under a brief lock.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiting := make(map[string]int, len(s.queues))
	for c, q := range s.queues {
		waiting[c] = len(q)
	}
	return Stats{
		ActiveUsers:    len(s.users),
		ConnectedUsers: len(s.byUser),
		Waiting:        waiting,
		ActiveSessions: len(s.sessions),
		TotalSessions:  s.totalSessions,
		TotalMessages:  s.totalMessages,
	}
}

// dequeueLocked removes userID from whichever queue holds it.
func (s *Store) dequeueLocked(userID string) bool {
	category, ok := s.queuedIn[userID]
	if !ok {
		return false
	}
	s.removeFromQueueLocked(category, userID)
	return true
}

func (s *Store) removeFromQueueLocked(category, userID string) {
	q := s.queues[category]
	for i, id := range q {
		if id == userID {
			s.queues[category] = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	if s.queuedIn[userID] == category {
		delete(s.queuedIn, userID)
	}
}

// endSessionLocked flips Active and drops both index entries in one step.
func (s *Store) endSessionLocked(sessionID string) (models.ChatSession, bool) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return models.ChatSession{}, false
	}
	sess.Active = false
	delete(s.sessions, sessionID)
	for _, p := range sess.Participants {
		if s.byUser[p] == sessionID {
			delete(s.byUser, p)
		}
	}
	return sess.Snapshot(), true
}

// createSessionLocked enforces session exclusivity and keeps the
// user→session index and the session participants in agreement.
func (s *Store) createSessionLocked(first, second, category string) (*models.ChatSession, error) {
	if _, busy := s.byUser[first]; busy {
		return nil, ErrInvalidState
	}
	if _, busy := s.byUser[second]; busy {
		return nil, ErrInvalidState
	}
	sess, err := models.NewChatSession("", first, second, category, s.now())
	if err != nil {
		return nil, ErrInvalidState
	}
	s.dequeueLocked(first)
	s.dequeueLocked(second)

	s.sessions[sess.ID] = sess
	s.byUser[first] = sess.ID
	s.byUser[second] = sess.ID
	for _, id := range sess.Participants {
		if u, ok := s.users[id]; ok {
			u.TotalSessions++
			u.LastActive = sess.CreatedAt
		}
	}
	s.totalSessions++
	return sess, nil
}

// sessionForLocked resolves a session and checks userID participates in it.
func (s *Store) sessionForLocked(sessionID, userID string) (*models.ChatSession, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if !sess.IsParticipant(userID) {
		return nil, ErrNotAuthorized
	}
	return sess, nil
}

// removeUserLocked drops userID from every queue, ends its session and
// deletes its presence record. The ended session is returned so the caller
// can notify the partner once the lock is released.
func (s *Store) removeUserLocked(userID string) (models.ChatSession, bool) {
	s.dequeueLocked(userID)
	var (
		ended models.ChatSession
		had   bool
	)
	if sid, ok := s.byUser[userID]; ok {
		ended, had = s.endSessionLocked(sid)
	}
	delete(s.users, userID)
	return ended, had
}
