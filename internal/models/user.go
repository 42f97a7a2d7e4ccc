package models

import (
	"sort"
	"time"
)

// DefaultLanguage is assigned to profiles that never set a language.
const DefaultLanguage = "en"

// Profile holds the optional matching attributes of a user.
type Profile struct {
	Interests []string `json:"interests"`
	Language  string   `json:"language"`
	Country   string   `json:"country,omitempty"`
	AgeGroup  string   `json:"age_group,omitempty"`
	Gender    string   `json:"gender,omitempty"`
}

// ProfileUpdate is a partial profile: only non-nil fields are applied.
type ProfileUpdate struct {
	Interests *[]string `json:"interests,omitempty"`
	Language  *string   `json:"language,omitempty"`
	Country   *string   `json:"country,omitempty"`
	AgeGroup  *string   `json:"age_group,omitempty"`
	Gender    *string   `json:"gender,omitempty"`
}

// User is the presence record of one connected anonymous user.
// It lives only as long as the connection does.
type User struct {
	ID      string
	Profile Profile

	BlockedIDs map[string]struct{}
	ReportedBy map[string]struct{}
	Banned     bool

	ConnectionQuality string
	TotalSessions     int

	CreatedAt  time.Time
	LastActive time.Time
}

// NewUser builds a record with default profile values and empty moderation sets.
func NewUser(id string, now time.Time) *User {
	return &User{
		ID:                id,
		Profile:           Profile{Language: DefaultLanguage, Interests: []string{}},
		BlockedIDs:        make(map[string]struct{}),
		ReportedBy:        make(map[string]struct{}),
		ConnectionQuality: "unknown",
		CreatedAt:         now,
		LastActive:        now,
	}
}

// Apply merges the supplied fields into the user's profile.
func (u *User) Apply(update ProfileUpdate) {
	if update.Interests != nil {
		u.Profile.Interests = NormalizeInterests(*update.Interests)
	}
	if update.Language != nil {
		u.Profile.Language = *update.Language
	}
	if update.Country != nil {
		u.Profile.Country = *update.Country
	}
	if update.AgeGroup != nil {
		u.Profile.AgeGroup = *update.AgeGroup
	}
	if update.Gender != nil {
		u.Profile.Gender = *update.Gender
	}
}

// HasBlocked reports whether u blocked the other user.
func (u *User) HasBlocked(otherID string) bool {
	_, ok := u.BlockedIDs[otherID]
	return ok
}

// View returns the public projection shown to partners and profile readers.
func (u *User) View() ProfileView {
	interests := make([]string, len(u.Profile.Interests))
	copy(interests, u.Profile.Interests)
	return ProfileView{
		UserID:            u.ID,
		Interests:         interests,
		Language:          u.Profile.Language,
		Country:           u.Profile.Country,
		AgeGroup:          u.Profile.AgeGroup,
		Gender:            u.Profile.Gender,
		TotalSessions:     u.TotalSessions,
		ConnectionQuality: u.ConnectionQuality,
	}
}

// ProfileView is the serialisable form of a user profile.
type ProfileView struct {
	UserID            string   `json:"user_id"`
	Interests         []string `json:"interests"`
	Language          string   `json:"language"`
	Country           string   `json:"country,omitempty"`
	AgeGroup          string   `json:"age_group,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	TotalSessions     int      `json:"total_sessions"`
	ConnectionQuality string   `json:"connection_quality"`
}

// NormalizeInterests de-duplicates and sorts interest tags, dropping empty ones.
func NormalizeInterests(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, tag := range in {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
