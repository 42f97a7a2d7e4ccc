package chathub_test

import (
	"errors"
	"testing"

	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterAndNotify(t *testing.T) {
	tap := new(MockStorage)
	tap.On("PublishEvent", "user_A", mock.AnythingOfType("models.Event")).Return(nil).Once()
	hub := chathub.NewHub(tap)
	client := newMockClient("user_A", 1)
	hub.Register(client)

	hub.Notify("user_A", models.Event{Type: models.EventMatched, SessionID: "room1"})

	require.Len(t, client.send, 1)
	ev := <-client.send
	assert.Equal(t, models.EventMatched, ev.Type)
	assert.Equal(t, 1, hub.Len())
	tap.AssertExpectations(t)
}

// TestHubNotifyNeverBlocks verifies a full client buffer drops the event.
func TestHubNotifyNeverBlocks(t *testing.T) {
	hub := chathub.NewHub(nil)
	client := newMockClient("user_A", 1)
	hub.Register(client)

	hub.Notify("user_A", models.Event{Type: models.EventNewMessage})
	hub.Notify("user_A", models.Event{Type: models.EventNewMessage})
	hub.Notify("nobody", models.Event{Type: models.EventNewMessage})

	assert.Len(t, client.send, 1)
}

func TestHubTapErrorIsLogged(t *testing.T) {
	tap := new(MockStorage)
	tap.On("PublishEvent", "user_A", mock.Anything).Return(errors.New("redis down"))
	hub := chathub.NewHub(tap)

	assert.NotPanics(t, func() {
		hub.Notify("user_A", models.Event{Type: models.EventMatched})
	})
}

// TestHubUnregisterKeepsNewerClient verifies a stale connection cannot
// remove the client that replaced it.
func TestHubUnregisterKeepsNewerClient(t *testing.T) {
	hub := chathub.NewHub(nil)
	old := newMockClient("user_A", 1)
	replacement := newMockClient("user_A", 1)
	hub.Register(old)
	hub.Register(replacement)

	hub.Unregister(old)
	got, ok := hub.Client("user_A")
	require.True(t, ok)
	assert.Same(t, replacement, got)

	hub.Unregister(replacement)
	assert.Equal(t, 0, hub.Len())
}
