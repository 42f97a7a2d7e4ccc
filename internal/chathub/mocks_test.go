package chathub_test

import (
	"sync"
	"time"

	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify/mock implementation of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveRoom(room *models.ChatRoom) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *MockStorage) CloseRoom(roomID, reason string, messageCount int, endedAt time.Time) error {
	args := m.Called(roomID, reason, messageCount, endedAt)
	return args.Error(0)
}

func (m *MockStorage) SaveMessage(history *models.ChatHistory) error {
	args := m.Called(history)
	return args.Error(0)
}

func (m *MockStorage) SaveComplaint(complaint *models.Complaint) error {
	args := m.Called(complaint)
	return args.Error(0)
}

func (m *MockStorage) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) GetRecentRooms(limit int) ([]models.ChatRoom, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatRoom), args.Error(1)
}

func (m *MockStorage) GetChatHistory(roomID string) ([]models.ChatHistory, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatHistory), args.Error(1)
}

func (m *MockStorage) GetComplaintsForUser(userID string, since time.Time) ([]models.Complaint, error) {
	args := m.Called(userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockStorage) PublishEvent(userID string, ev models.Event) error {
	args := m.Called(userID, ev)
	return args.Error(0)
}

func (m *MockStorage) MarkBanned(userID, reason string, ttl time.Duration) error {
	args := m.Called(userID, reason, ttl)
	return args.Error(0)
}

func (m *MockStorage) IsUserBanned(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

// MockArchiver records archive calls.
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) SessionStarted(sess models.ChatSession, shared []string) error {
	args := m.Called(sess, shared)
	return args.Error(0)
}

func (m *MockArchiver) MessageAppended(sessionID string, msg models.Message) error {
	args := m.Called(sessionID, msg)
	return args.Error(0)
}

func (m *MockArchiver) SessionEnded(sess models.ChatSession, reason string) error {
	args := m.Called(sess, reason)
	return args.Error(0)
}

// recorder is a Notifier that keeps every event per user.
type recorder struct {
	mu     sync.Mutex
	events map[string][]models.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]models.Event)}
}

func (r *recorder) Notify(userID string, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[userID] = append(r.events[userID], ev)
}

func (r *recorder) For(userID string) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, len(r.events[userID]))
	copy(out, r.events[userID])
	return out
}

// last returns the latest event of type typ delivered to userID.
func (r *recorder) last(userID, typ string) (models.Event, bool) {
	evs := r.For(userID)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == typ {
			return evs[i], true
		}
	}
	return models.Event{}, false
}

// mockClient is a Client with a buffered channel that tests can drain.
type mockClient struct {
	userID string
	send   chan models.Event
	closed bool
}

func newMockClient(userID string, buffer int) *mockClient {
	return &mockClient{userID: userID, send: make(chan models.Event, buffer)}
}

func (c *mockClient) GetUserID() string                    { return c.userID }
func (c *mockClient) GetSendChannel() chan<- models.Event { return c.send }
func (c *mockClient) Run()                                {}
func (c *mockClient) Close() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

var _ chathub.Client = (*mockClient)(nil)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func strPtr(s string) *string { return &s }

func interests(tags ...string) *[]string { return &tags }

// profile builds a ProfileUpdate with a language and interests.
func profile(lang string, tags ...string) *models.ProfileUpdate {
	return &models.ProfileUpdate{Language: strPtr(lang), Interests: interests(tags...)}
}
