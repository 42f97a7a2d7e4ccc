// Package storage archives chat sessions, messages and complaints in
// PostgreSQL and mirrors events and bans to Redis. Both backends are
// optional: a nil DB or Redis client turns the matching methods into no-ops.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"strangerlink/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// EventsChannel is the Redis channel every delivered event is published to.
const EventsChannel = "chat:events"

const banKeyPrefix = "ban:"

// ErrNoDatabase is returned by queries when no database is configured.
var ErrNoDatabase = errors.New("storage: database not configured")

// ErrRoomNotFound is returned when an archived room does not exist.
var ErrRoomNotFound = errors.New("chat room not found")

type Storage interface {
	SaveRoom(room *models.ChatRoom) error
	CloseRoom(roomID, reason string, messageCount int, endedAt time.Time) error
	SaveMessage(history *models.ChatHistory) error
	SaveComplaint(complaint *models.Complaint) error

	GetRoomByID(roomID string) (*models.ChatRoom, error)
	GetRecentRooms(limit int) ([]models.ChatRoom, error)
	GetChatHistory(roomID string) ([]models.ChatHistory, error)
	GetComplaintsForUser(userID string, since time.Time) ([]models.Complaint, error)

	PublishEvent(userID string, ev models.Event) error
	MarkBanned(userID, reason string, ttl time.Duration) error
	IsUserBanned(userID string) (bool, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor. Either argument may be nil.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// Migrate creates the archive tables.
func (s *Service) Migrate() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.AutoMigrate(
		&models.ChatRoom{},
		&models.ChatHistory{},
		&models.Complaint{},
	)
}

// SaveRoom зберігає кімнату в PostgreSQL
func (s *Service) SaveRoom(room *models.ChatRoom) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Save(room).Error
}

// CloseRoom закриває кімнату, встановлюючи IsActive = false та причину завершення
func (s *Service) CloseRoom(roomID, reason string, messageCount int, endedAt time.Time) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Model(&models.ChatRoom{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"is_active":     false,
			"end_reason":    reason,
			"message_count": messageCount,
			"ended_at":      endedAt,
		}).Error
}

// SaveMessage appends one message to the archive.
func (s *Service) SaveMessage(history *models.ChatHistory) error {
	if s.DB == nil {
		return nil
	}
	if err := s.DB.Create(history).Error; err != nil {
		slog.Error("failed to save message", "room_id", history.RoomID, "err", err)
		return err
	}
	return nil
}

// SaveComplaint stores a user report.
func (s *Service) SaveComplaint(complaint *models.Complaint) error {
	if s.DB == nil {
		return nil
	}
	if err := s.DB.Create(complaint).Error; err != nil {
		slog.Error("failed to save complaint", "room_id", complaint.RoomID, "err", err)
		return err
	}
	return nil
}

func (s *Service) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	if s.DB == nil {
		return nil, ErrNoDatabase
	}
	var room models.ChatRoom
	err := s.DB.Where("room_id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRecentRooms returns the most recently started rooms first.
func (s *Service) GetRecentRooms(limit int) ([]models.ChatRoom, error) {
	if s.DB == nil {
		return nil, ErrNoDatabase
	}
	var rooms []models.ChatRoom
	if err := s.DB.Order("started_at desc").Limit(limit).Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetChatHistory returns a room's archived messages in send order.
func (s *Service) GetChatHistory(roomID string) ([]models.ChatHistory, error) {
	if s.DB == nil {
		return nil, ErrNoDatabase
	}
	var history []models.ChatHistory
	if err := s.DB.Where("room_id = ?", roomID).Order("seq asc").Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// GetComplaintsForUser returns reports filed against userID since the given time.
func (s *Service) GetComplaintsForUser(userID string, since time.Time) ([]models.Complaint, error) {
	if s.DB == nil {
		return nil, ErrNoDatabase
	}
	var complaints []models.Complaint
	err := s.DB.Where("reported_user_id = ? AND created_at >= ?", userID, since).
		Order("created_at asc").
		Find(&complaints).Error
	if err != nil {
		return nil, err
	}
	return complaints, nil
}

// eventEnvelope is the JSON shape published on EventsChannel.
type eventEnvelope struct {
	UserID string       `json:"user_id"`
	Event  models.Event `json:"event"`
}

// PublishEvent публікує подію в Redis Pub/Sub
func (s *Service) PublishEvent(userID string, ev models.Event) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(eventEnvelope{UserID: userID, Event: ev})
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, EventsChannel, payload).Err()
}

// SubscribeEvents subscribes to EventsChannel.
func (s *Service) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return s.Redis.Subscribe(ctx, EventsChannel)
}

// DecodeEvent parses a payload received from EventsChannel.
func DecodeEvent(payload string) (string, models.Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return "", models.Event{}, err
	}
	return env.UserID, env.Event, nil
}

// MarkBanned records a ban for userID in Redis for ttl.
func (s *Service) MarkBanned(userID, reason string, ttl time.Duration) error {
	if s.Redis == nil {
		return nil
	}
	if reason == "" {
		reason = "banned"
	}
	return s.Redis.Set(s.Ctx, banKeyPrefix+userID, reason, ttl).Err()
}

// IsUserBanned перевіряє статус бану в Redis
func (s *Service) IsUserBanned(userID string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	status, err := s.Redis.Get(s.Ctx, banKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}
