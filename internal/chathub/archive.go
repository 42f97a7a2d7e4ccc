package chathub

import (
	"time"

	"strangerlink/backend/internal/models"
	"strangerlink/backend/internal/storage"
)

// Archiver records session lifecycle for later inspection. It is called
// outside the store lock and its errors never fail a core operation.
type Archiver interface {
	SessionStarted(sess models.ChatSession, sharedInterests []string) error
	MessageAppended(sessionID string, msg models.Message) error
	SessionEnded(sess models.ChatSession, reason string) error
}

// StorageArchiver writes the archive through storage.Storage.
type StorageArchiver struct {
	Storage storage.Storage
}

// NewStorageArchiver wraps s.
func NewStorageArchiver(s storage.Storage) *StorageArchiver {
	return &StorageArchiver{Storage: s}
}

func (a *StorageArchiver) SessionStarted(sess models.ChatSession, shared []string) error {
	return a.Storage.SaveRoom(models.ArchiveRoom(sess, shared))
}

func (a *StorageArchiver) MessageAppended(sessionID string, msg models.Message) error {
	history := models.HistoryFromMessage(sessionID, msg)
	return a.Storage.SaveMessage(&history)
}

func (a *StorageArchiver) SessionEnded(sess models.ChatSession, reason string) error {
	return a.Storage.CloseRoom(sess.ID, reason, len(sess.Messages), time.Now())
}
