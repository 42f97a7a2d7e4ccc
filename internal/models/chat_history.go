package models

import "gorm.io/gorm"

// ChatHistory represents an archived chat message in PostgreSQL.
// The embedded gorm.Model provides the row id and bookkeeping timestamps.
type ChatHistory struct {
	gorm.Model

	// MessageID is the uuid the message had in the live session.
	MessageID string `gorm:"type:uuid;uniqueIndex"`
	// RoomID is the identifier of the session the message belonged to.
	RoomID   string `gorm:"type:uuid;not null;index:idx_room_msg"`
	SenderID string `gorm:"type:text;not null;index:idx_room_msg"`
	Seq      uint64 `gorm:"not null"`
	Content  string `gorm:"type:text;not null"`
	Type     string `gorm:"type:text;not null"`
}

// HistoryFromMessage converts a session message into its archive row.
func HistoryFromMessage(roomID string, m Message) ChatHistory {
	return ChatHistory{
		MessageID: m.ID,
		RoomID:    roomID,
		SenderID:  m.SenderID,
		Seq:       m.Seq,
		Content:   m.Body,
		Type:      m.Type,
	}
}
