package models

import "time"

// Complaint is an archived user report.
type Complaint struct {
	ComplaintID    string `gorm:"primaryKey"`
	ReporterID     string `gorm:"index"`
	ReportedUserID string `gorm:"index"`
	RoomID         string
	Reason         string
	Severity       string
	// ReporterCount is the number of distinct reporters after this report.
	ReporterCount int
	// Banned is true when this report pushed the target over the ban threshold.
	Banned    bool
	CreatedAt time.Time
}
