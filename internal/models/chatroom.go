package models

import (
	"time"

	"github.com/lib/pq"
)

// ChatRoom is the archived record of a finished or running chat session.
type ChatRoom struct {
	// RoomID matches the in-memory session id.
	RoomID   string `gorm:"primaryKey"`
	Category string `gorm:"type:text;index"`
	User1ID  string `gorm:"index"`
	User2ID  string `gorm:"index"`
	// SharedInterests records the interests both participants had at match time.
	SharedInterests pq.StringArray `gorm:"type:text[]"`
	IsActive        bool
	EndReason       string
	MessageCount    int
	StartedAt       time.Time
	EndedAt         *time.Time
}

// ArchiveRoom builds the archive record of a freshly created session.
func ArchiveRoom(s ChatSession, shared []string) *ChatRoom {
	return &ChatRoom{
		RoomID:          s.ID,
		Category:        s.Category,
		User1ID:         s.Participants[0],
		User2ID:         s.Participants[1],
		SharedInterests: pq.StringArray(shared),
		IsActive:        true,
		StartedAt:       s.CreatedAt,
	}
}
