package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Chat categories. Each one has an independent waiting queue.
const (
	CategoryText  = "text"
	CategoryVideo = "video"
)

// Categories lists every supported chat category in a stable order.
var Categories = []string{CategoryVideo, CategoryText}

// ValidCategory reports whether c names a known chat category.
func ValidCategory(c string) bool {
	return c == CategoryText || c == CategoryVideo
}

// Message perspective tags, computed relative to the reader.
const (
	FromYou      = "you"
	FromStranger = "stranger"
)

var (
	ErrMissingParticipant = errors.New("session requires two participant ids")
	ErrSameParticipant    = errors.New("session participants must be distinct")
)

// Message is one immutable entry of a session log.
type Message struct {
	ID        string
	SenderID  string
	Seq       uint64
	Body      string
	Type      string
	Timestamp time.Time
}

// MessageView is a message as seen by one of the participants.
type MessageView struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is a paired conversation between exactly two users.
type ChatSession struct {
	ID       string
	Category string
	// Participants keeps the order fixed: index 0 is the user who requested
	// the match, index 1 is the partner taken from the queue.
	Participants [2]string
	Messages     []Message
	Typing       [2]bool
	Quality      [2]string

	CreatedAt    time.Time
	LastActivity time.Time
	Active       bool
}

// NewChatSession builds an active session, rejecting missing or equal ids.
func NewChatSession(id, first, second, category string, now time.Time) (*ChatSession, error) {
	if first == "" || second == "" {
		return nil, ErrMissingParticipant
	}
	if first == second {
		return nil, ErrSameParticipant
	}
	if id == "" {
		id = uuid.New().String()
	}
	return &ChatSession{
		ID:           id,
		Category:     category,
		Participants: [2]string{first, second},
		Quality:      [2]string{"unknown", "unknown"},
		CreatedAt:    now,
		LastActivity: now,
		Active:       true,
	}, nil
}

// Slot returns the participant index of userID, or -1.
func (s *ChatSession) Slot(userID string) int {
	switch userID {
	case s.Participants[0]:
		return 0
	case s.Participants[1]:
		return 1
	}
	return -1
}

// IsParticipant reports whether userID is one of the two participants.
func (s *ChatSession) IsParticipant(userID string) bool {
	return s.Slot(userID) >= 0
}

// PartnerOf returns the other participant. userID must be a participant.
func (s *ChatSession) PartnerOf(userID string) string {
	if userID == s.Participants[0] {
		return s.Participants[1]
	}
	return s.Participants[0]
}

// Append adds a message to the log. Timestamps inside one session are kept
// strictly increasing so that a timestamp cursor never matches two entries.
func (s *ChatSession) Append(senderID, body, msgType string, now time.Time) Message {
	if n := len(s.Messages); n > 0 {
		if last := s.Messages[n-1].Timestamp; !now.After(last) {
			now = last.Add(time.Nanosecond)
		}
	}
	msg := Message{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		Seq:       uint64(len(s.Messages)) + 1,
		Body:      body,
		Type:      msgType,
		Timestamp: now,
	}
	s.Messages = append(s.Messages, msg)
	s.LastActivity = now
	return msg
}

// Since returns messages strictly newer than the cursor, or all when cursor is nil.
func (s *ChatSession) Since(cursor *time.Time) []Message {
	if cursor == nil {
		out := make([]Message, len(s.Messages))
		copy(out, s.Messages)
		return out
	}
	out := make([]Message, 0)
	for _, m := range s.Messages {
		if m.Timestamp.After(*cursor) {
			out = append(out, m)
		}
	}
	return out
}

// ViewFor projects a message for reader.
func ViewFor(m Message, readerID string) MessageView {
	from := FromStranger
	if m.SenderID == readerID {
		from = FromYou
	}
	return MessageView{
		ID:        m.ID,
		From:      from,
		Text:      m.Body,
		Type:      m.Type,
		Seq:       m.Seq,
		Timestamp: m.Timestamp,
	}
}

// Snapshot returns a deep copy safe to read without the store lock.
func (s *ChatSession) Snapshot() ChatSession {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return cp
}
