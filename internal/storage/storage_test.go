package storage_test

import (
	"context"
	"testing"
	"time"

	"strangerlink/backend/internal/models"
	"strangerlink/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisService(t *testing.T) (*storage.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return storage.NewStorageService(nil, rdb), mr
}

func TestMarkBannedAndIsUserBanned(t *testing.T) {
	s, mr := newRedisService(t)

	banned, err := s.IsUserBanned("tg:42")
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, s.MarkBanned("tg:42", "", time.Hour))
	banned, err = s.IsUserBanned("tg:42")
	require.NoError(t, err)
	assert.True(t, banned)

	mr.FastForward(2 * time.Hour)
	banned, err = s.IsUserBanned("tg:42")
	require.NoError(t, err)
	assert.False(t, banned, "ban mirror expires with its ttl")
}

func TestIsUserBannedRedisDown(t *testing.T) {
	s, mr := newRedisService(t)
	mr.Close()

	_, err := s.IsUserBanned("tg:42")
	assert.Error(t, err)
}

func TestPublishEvent(t *testing.T) {
	s, _ := newRedisService(t)
	ctx := context.Background()

	sub := s.SubscribeEvents(ctx)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	ev := models.Event{Type: models.EventSessionEnded, SessionID: "room1", Reason: models.ReasonInactivity}
	require.NoError(t, s.PublishEvent("user_A", ev))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.EventsChannel, msg.Channel)

	userID, got, err := storage.DecodeEvent(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, "user_A", userID)
	assert.Equal(t, ev.Type, got.Type)
	assert.Equal(t, "room1", got.SessionID)
	assert.Equal(t, models.ReasonInactivity, got.Reason)
}

// TestServiceWithoutBackends verifies writes are no-ops and reads report the missing database.
func TestServiceWithoutBackends(t *testing.T) {
	s := storage.NewStorageService(nil, nil)

	assert.NoError(t, s.Migrate())
	assert.NoError(t, s.SaveRoom(&models.ChatRoom{RoomID: "room1"}))
	assert.NoError(t, s.CloseRoom("room1", models.ReasonPartnerLeft, 3, time.Now()))
	assert.NoError(t, s.SaveMessage(&models.ChatHistory{RoomID: "room1"}))
	assert.NoError(t, s.SaveComplaint(&models.Complaint{ComplaintID: "c1"}))
	assert.NoError(t, s.PublishEvent("user_A", models.Event{Type: models.EventMatched}))
	assert.NoError(t, s.MarkBanned("user_A", "reports", time.Hour))

	banned, err := s.IsUserBanned("user_A")
	assert.NoError(t, err)
	assert.False(t, banned)

	_, err = s.GetRoomByID("room1")
	assert.ErrorIs(t, err, storage.ErrNoDatabase)
	_, err = s.GetRecentRooms(10)
	assert.ErrorIs(t, err, storage.ErrNoDatabase)
	_, err = s.GetChatHistory("room1")
	assert.ErrorIs(t, err, storage.ErrNoDatabase)
	_, err = s.GetComplaintsForUser("user_A", time.Time{})
	assert.ErrorIs(t, err, storage.ErrNoDatabase)
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	_, _, err := storage.DecodeEvent("not json")
	assert.Error(t, err)
}
