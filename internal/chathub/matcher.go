package chathub

import (
	"fmt"
	"log/slog"

	"strangerlink/backend/internal/config"
	"strangerlink/backend/internal/models"
)

// Policy selects how FindMatch picks a partner from a queue.
type Policy int

const (
	// PolicyCompatibility picks the best-scoring waiting user.
	PolicyCompatibility Policy = iota
	// PolicyFIFO picks the longest-waiting eligible user.
	PolicyFIFO
)

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case config.PolicyCompatibility, "":
		return PolicyCompatibility, nil
	case config.PolicyFIFO:
		return PolicyFIFO, nil
	}
	return PolicyCompatibility, fmt.Errorf("unknown match policy %q", name)
}

func (p Policy) String() string {
	if p == PolicyFIFO {
		return config.PolicyFIFO
	}
	return config.PolicyCompatibility
}

// Matcher maintains the per-category waiting queues.
type Matcher struct {
	store  *Store
	policy Policy
}

// NewMatcher returns a matcher over store using policy.
func NewMatcher(store *Store, policy Policy) *Matcher {
	return &Matcher{store: store, policy: policy}
}

// Policy returns the active selection policy.
func (m *Matcher) Policy() Policy { return m.policy }

// Enqueue appends userID to the tail of category's queue, first removing it
// from any other queue. It returns false when the user is not registered, is
// already waiting in category, is in a session, or category is unknown.
func (m *Matcher) Enqueue(userID, category string) bool {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.enqueueLocked(userID, category)
}

func (m *Matcher) enqueueLocked(userID, category string) bool {
	s := m.store
	if !models.ValidCategory(category) {
		return false
	}
	if _, ok := s.users[userID]; !ok {
		return false
	}
	if _, busy := s.byUser[userID]; busy {
		return false
	}
	if s.queuedIn[userID] == category {
		return false
	}
	s.dequeueLocked(userID)
	s.queues[category] = append(s.queues[category], userID)
	s.queuedIn[userID] = category
	slog.Info("user added to waiting room", "user_id", userID, "category", category)
	return true
}

// Dequeue removes userID from any waiting queue.
func (m *Matcher) Dequeue(userID string) bool {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dequeueLocked(userID)
}

// QueueLen returns the number of users waiting in category.
func (m *Matcher) QueueLen(category string) int {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[category])
}

// Waiting returns a copy of category's queue in arrival order.
func (m *Matcher) Waiting(category string) []string {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queues[category]))
	copy(out, s.queues[category])
	return out
}

// QueuedIn returns the category userID is waiting in, if any.
func (m *Matcher) QueuedIn(userID string) (string, bool) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.queuedIn[userID]
	return c, ok
}

// FindMatch selects and removes a partner for userID from category's queue.
// The scan, the choice and the removal happen in one critical section, so two
// concurrent callers can never receive the same partner. The requester itself
// is never returned.
func (m *Matcher) FindMatch(userID, category string) (string, bool) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.findMatchLocked(userID, category)
}

func (m *Matcher) findMatchLocked(userID, category string) (string, bool) {
	s := m.store
	requester, ok := s.users[userID]
	if !ok {
		return "", false
	}

	var stale []string
	best, bestScore, fallback := -1, 0, -1
	for i, id := range s.queues[category] {
		if id == userID {
			continue
		}
		cand, ok := s.users[id]
		if !ok || cand.Banned {
			stale = append(stale, id)
			continue
		}
		if _, busy := s.byUser[id]; busy {
			stale = append(stale, id)
			continue
		}
		if cand.HasBlocked(userID) || requester.HasBlocked(id) {
			continue
		}
		if fallback < 0 {
			fallback = i
		}
		if m.policy == PolicyFIFO {
			break
		}
		if score := Compatibility(requester, cand); score > bestScore {
			best, bestScore = i, score
		}
	}

	chosen := best
	if chosen < 0 {
		chosen = fallback
	}
	var partner string
	if chosen >= 0 {
		partner = s.queues[category][chosen]
	}
	for _, id := range stale {
		s.removeFromQueueLocked(category, id)
	}
	if partner == "" {
		return "", false
	}
	s.removeFromQueueLocked(category, partner)
	return partner, true
}

// MatchOutcome is the result of MatchOrEnqueue.
type MatchOutcome struct {
	Matched bool
	Session models.ChatSession
	// Requester and Partner are profile views taken at match time.
	Requester       models.ProfileView
	Partner         models.ProfileView
	SharedInterests []string
	// QueueLen is the queue length after enqueueing when not matched.
	QueueLen int
}

// MatchOrEnqueue validates the requester, then either pairs it with a waiting
// user and creates the session, or enqueues it. All of this is one critical
// section so that a partner cannot disappear between selection and session
// creation.
func (m *Matcher) MatchOrEnqueue(userID, category string) (MatchOutcome, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if !models.ValidCategory(category) {
		return MatchOutcome{}, fmt.Errorf("category %q: %w", category, ErrInvalidState)
	}
	u, ok := s.users[userID]
	if !ok {
		return MatchOutcome{}, fmt.Errorf("user %s not connected: %w", userID, ErrInvalidState)
	}
	if u.Banned {
		return MatchOutcome{}, ErrSuspended
	}
	if _, busy := s.byUser[userID]; busy {
		return MatchOutcome{}, fmt.Errorf("user %s already in a session: %w", userID, ErrInvalidState)
	}

	if partnerID, found := m.findMatchLocked(userID, category); found {
		sess, err := s.createSessionLocked(userID, partnerID, category)
		if err != nil {
			return MatchOutcome{}, err
		}
		partner := s.users[partnerID]
		return MatchOutcome{
			Matched:         true,
			Session:         sess.Snapshot(),
			Requester:       u.View(),
			Partner:         partner.View(),
			SharedInterests: SharedInterests(u, partner),
		}, nil
	}

	m.enqueueLocked(userID, category)
	return MatchOutcome{QueueLen: len(s.queues[category])}, nil
}

// Compatibility scores how well two users fit. Attributes are only compared
// when both sides have them set.
func Compatibility(a, b *models.User) int {
	score := 0
	if a.Profile.Language != "" && a.Profile.Language == b.Profile.Language {
		score += config.LanguageMatchWeight
	}
	score += len(SharedInterests(a, b)) * config.SharedInterestWeight
	if a.Profile.AgeGroup != "" && a.Profile.AgeGroup == b.Profile.AgeGroup {
		score += config.AgeGroupMatchWeight
	}
	if a.Profile.Country != "" && a.Profile.Country == b.Profile.Country {
		score += config.CountryMatchWeight
	}
	return score
}

// SharedInterests returns the interests both users have, in a's order.
func SharedInterests(a, b *models.User) []string {
	theirs := make(map[string]struct{}, len(b.Profile.Interests))
	for _, tag := range b.Profile.Interests {
		theirs[tag] = struct{}{}
	}
	shared := make([]string, 0)
	for _, tag := range a.Profile.Interests {
		if _, ok := theirs[tag]; ok {
			shared = append(shared, tag)
		}
	}
	return shared
}
