package config

import "time"

const (
	// Compatibility score weights
	LanguageMatchWeight  = 50
	SharedInterestWeight = 10
	AgeGroupMatchWeight  = 20
	CountryMatchWeight   = 15

	// Moderation
	ReportBanThreshold = 5
	BanMirrorTTL       = 7 * 24 * time.Hour

	// Reaper
	DefaultReaperInterval    = 5 * time.Minute
	DefaultInactivityTimeout = 30 * time.Minute

	// Rate limit for start_chat requests
	DefaultStartRateLimitPerMinute = 30
)

// EstimatedWaitPerUser is the per-queued-user wait estimate by category.
var EstimatedWaitPerUser = map[string]time.Duration{
	"text":  30 * time.Second,
	"video": 45 * time.Second,
}

// ReportSeverity maps well-known report reasons to a severity label stored
// with the complaint. Unknown reasons are "low".
var ReportSeverity = map[string]string{
	"spam":          "low",
	"inappropriate": "medium",
	"harassment":    "medium",
	"underage":      "critical",
	"illegal":       "critical",
}
