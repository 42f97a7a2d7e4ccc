package models_test

import (
	"testing"
	"time"

	"strangerlink/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatSession_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		first   string
		second  string
		wantErr error
	}{
		{name: "missing first", first: "", second: "b", wantErr: models.ErrMissingParticipant},
		{name: "missing second", first: "a", second: "", wantErr: models.ErrMissingParticipant},
		{name: "same user", first: "a", second: "a", wantErr: models.ErrSameParticipant},
		{name: "valid", first: "a", second: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := models.NewChatSession("", tt.first, tt.second, models.CategoryText, time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			_, parseErr := uuid.Parse(s.ID)
			assert.NoError(t, parseErr, "generated session id must be a uuid")
			assert.True(t, s.Active)
			assert.Equal(t, [2]string{"a", "b"}, s.Participants)
		})
	}
}

func TestChatSession_PartnerOf(t *testing.T) {
	s, err := models.NewChatSession("room1", "a", "b", models.CategoryVideo, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "b", s.PartnerOf("a"))
	assert.Equal(t, "a", s.PartnerOf("b"))
	assert.True(t, s.IsParticipant("a"))
	assert.False(t, s.IsParticipant("c"))
	assert.Equal(t, -1, s.Slot("c"))
}

// TestChatSession_AppendMonotonic verifies equal wall-clock readings still produce ordered timestamps.
func TestChatSession_AppendMonotonic(t *testing.T) {
	now := time.Now()
	s, err := models.NewChatSession("room1", "a", "b", models.CategoryText, now)
	require.NoError(t, err)

	first := s.Append("a", "one", "text", now)
	second := s.Append("b", "two", "text", now)
	third := s.Append("a", "three", "text", now.Add(-time.Second))

	assert.True(t, second.Timestamp.After(first.Timestamp))
	assert.True(t, third.Timestamp.After(second.Timestamp))
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(3), third.Seq)
	assert.Equal(t, third.Timestamp, s.LastActivity)
}

func TestChatSession_SinceIsExclusive(t *testing.T) {
	now := time.Now()
	s, err := models.NewChatSession("room1", "a", "b", models.CategoryText, now)
	require.NoError(t, err)

	m1 := s.Append("a", "one", "text", now)
	m2 := s.Append("b", "two", "text", now.Add(time.Millisecond))
	m3 := s.Append("a", "three", "text", now.Add(2*time.Millisecond))

	assert.Len(t, s.Since(nil), 3)

	got := s.Since(&m1.Timestamp)
	require.Len(t, got, 2)
	assert.Equal(t, m2.ID, got[0].ID)
	assert.Equal(t, m3.ID, got[1].ID)

	assert.Empty(t, s.Since(&m3.Timestamp))
}

func TestViewFor_Perspective(t *testing.T) {
	s, err := models.NewChatSession("room1", "a", "b", models.CategoryText, time.Now())
	require.NoError(t, err)
	msg := s.Append("a", "hi", "text", time.Now())

	assert.Equal(t, models.FromYou, models.ViewFor(msg, "a").From)
	assert.Equal(t, models.FromStranger, models.ViewFor(msg, "b").From)
	assert.Equal(t, "hi", models.ViewFor(msg, "b").Text)
}

func TestChatSession_SnapshotIsIndependent(t *testing.T) {
	s, err := models.NewChatSession("room1", "a", "b", models.CategoryText, time.Now())
	require.NoError(t, err)
	s.Append("a", "hi", "text", time.Now())

	snap := s.Snapshot()
	s.Append("b", "hello", "text", time.Now())

	assert.Len(t, snap.Messages, 1)
	assert.Len(t, s.Messages, 2)
}

func TestArchiveRoom(t *testing.T) {
	s, err := models.NewChatSession("room1", "a", "b", models.CategoryVideo, time.Now())
	require.NoError(t, err)

	room := models.ArchiveRoom(s.Snapshot(), []string{"tech"})
	assert.Equal(t, "room1", room.RoomID)
	assert.Equal(t, "a", room.User1ID)
	assert.Equal(t, "b", room.User2ID)
	assert.Equal(t, models.CategoryVideo, room.Category)
	assert.True(t, room.IsActive)
	assert.Equal(t, []string{"tech"}, []string(room.SharedInterests))
}
