package chathub

import (
	"fmt"
	"log/slog"

	"strangerlink/backend/internal/config"
	"strangerlink/backend/internal/models"
)

// Registry tracks which users are connected and holds their profiles.
type Registry struct {
	store *Store
}

// NewRegistry returns the presence view of store.
func NewRegistry(store *Store) *Registry {
	return &Registry{store: store}
}

// Register creates a record for userID if absent. Re-registering an existing
// user leaves profile and counters untouched.
func (r *Registry) Register(userID string, profile *models.ProfileUpdate) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; ok {
		return
	}
	u := models.NewUser(userID, s.now())
	if profile != nil {
		u.Apply(*profile)
	}
	s.users[userID] = u
	slog.Debug("user registered", "user_id", userID)
}

// Unregister removes the record. Queue and session membership are not touched.
func (r *Registry) Unregister(userID string) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// IsActive reports whether userID is registered.
func (r *Registry) IsActive(userID string) bool {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userID]
	return ok
}

// IsBanned reports whether userID is registered and banned.
func (r *Registry) IsBanned(userID string) bool {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	return ok && u.Banned
}

// Profile returns the public view of a user's profile.
func (r *Registry) Profile(userID string) (models.ProfileView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return models.ProfileView{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return u.View(), nil
}

// UpdateProfile merges the supplied fields into the user's profile.
func (r *Registry) UpdateProfile(userID string, update models.ProfileUpdate) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.Apply(update)
	u.LastActive = s.now()
	return nil
}

// SetConnectionQuality records the user's latest connection-quality tag.
func (r *Registry) SetConnectionQuality(userID, quality string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.ConnectionQuality = quality
	return nil
}

// Block adds targetID to userID's block list.
func (r *Registry) Block(userID, targetID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if userID == targetID {
		return fmt.Errorf("block self: %w", ErrInvalidState)
	}
	u.BlockedIDs[targetID] = struct{}{}
	slog.Info("user blocked", "user_id", userID, "target_id", targetID)
	return nil
}

// ReportResult describes the target's moderation state after a report.
type ReportResult struct {
	Reporters   int
	Banned      bool
	NewlyBanned bool
}

// Report records reporterID against targetID. Repeated reports from the same
// reporter count once; reaching ReportBanThreshold distinct reporters bans the
// target.
func (r *Registry) Report(reporterID, targetID, reason string) (ReportResult, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.users[targetID]
	if !ok {
		return ReportResult{}, fmt.Errorf("user %s: %w", targetID, ErrNotFound)
	}
	if reporterID == "" || reporterID == targetID {
		return ReportResult{}, fmt.Errorf("report: %w", ErrInvalidState)
	}
	target.ReportedBy[reporterID] = struct{}{}

	res := ReportResult{Reporters: len(target.ReportedBy), Banned: target.Banned}
	if !target.Banned && res.Reporters >= config.ReportBanThreshold {
		target.Banned = true
		res.Banned = true
		res.NewlyBanned = true
		slog.Warn("user auto-banned due to multiple reports", "user_id", targetID, "reporters", res.Reporters)
	}
	slog.Info("user reported", "user_id", targetID, "reporter_id", reporterID, "reason", reason)
	return res, nil
}

// Suspend marks a registered user as banned, e.g. when a durable ban record
// exists for a returning user.
func (r *Registry) Suspend(userID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.Banned = true
	return nil
}
