package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/complaint"
	"strangerlink/backend/internal/models"
	"strangerlink/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newTestHandler(limiter Limiter) *Handler {
	gin.SetMode(gin.TestMode)
	hub := chathub.NewHub(nil)
	m := chathub.NewManagerService(chathub.Options{Notifier: hub})
	complaints := complaint.NewService(m, storage.NewStorageService(nil, nil))
	return NewHandler(m, hub, complaints, limiter, "test-secret")
}

func doJSON(t *testing.T, r http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newTestHandler(nil)
	h.Manager.Connect(nil)

	w := doJSON(t, h.Router(), http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["active_users"])
}

func TestStartFlow(t *testing.T) {
	h := newTestHandler(nil)
	r := h.Router()
	a := h.Manager.Connect(nil)
	b := h.Manager.Connect(nil)

	w := doJSON(t, r, http.MethodPost, "/start_video", a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "waiting", body["status"])
	assert.EqualValues(t, 45, body["estimated_wait_time"])

	w = doJSON(t, r, http.MethodPost, "/start_video", b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "matched", body["status"])
	assert.Equal(t, a, body["partner_id"])
	assert.NotEmpty(t, body["session_id"])
}

func TestStartRejections(t *testing.T) {
	h := newTestHandler(nil)
	r := h.Router()

	w := doJSON(t, r, http.MethodPost, "/start", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/start", "ghost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	banned := h.Manager.Connect(nil)
	require.NoError(t, h.Manager.Registry.Suspend(banned))
	w = doJSON(t, r, http.MethodPost, "/start", banned, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Account suspended", decode(t, w)["error"])
}

func TestStartRateLimited(t *testing.T) {
	h := newTestHandler(denyAll{})
	a := h.Manager.Connect(nil)

	w := doJSON(t, h.Router(), http.MethodPost, "/start", a, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 0, h.Manager.Matcher.QueueLen(models.CategoryText))
}

func TestSendAndReceive(t *testing.T) {
	h := newTestHandler(nil)
	r := h.Router()
	a := h.Manager.Connect(nil)
	b := h.Manager.Connect(nil)
	_, err := h.Manager.StartChat(a, models.CategoryText)
	require.NoError(t, err)
	res, err := h.Manager.StartChat(b, models.CategoryText)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/send", "", map[string]string{
		"session_id": res.SessionID, "message": "hello", "user_id": a,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/receive", "", map[string]string{
		"session_id": res.SessionID, "user_id": b,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "stranger", msgs[0].(map[string]any)["from"])
	assert.Equal(t, true, body["session_active"])

	w = doJSON(t, r, http.MethodGet, "/messages/"+res.SessionID+"?user_id="+a, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs = decode(t, w)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "you", msgs[0].(map[string]any)["from"])

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano)
	w = doJSON(t, r, http.MethodGet, "/messages/"+res.SessionID+"?since="+future, a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["messages"])
}

func TestSessionErrorsMapTo404(t *testing.T) {
	h := newTestHandler(nil)
	r := h.Router()
	a := h.Manager.Connect(nil)
	b := h.Manager.Connect(nil)
	c := h.Manager.Connect(nil)
	_, err := h.Manager.StartChat(a, models.CategoryText)
	require.NoError(t, err)
	res, err := h.Manager.StartChat(b, models.CategoryText)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/messages/"+res.SessionID, c, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Session not found or user not in session", decode(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/send", c, map[string]string{"session_id": "missing", "message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/send", a, map[string]string{"session_id": res.SessionID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/disconnect", a, map[string]string{"session_id": res.SessionID})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/disconnect", a, map[string]string{"session_id": res.SessionID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileBlockReport(t *testing.T) {
	h := newTestHandler(nil)
	r := h.Router()
	a := h.Manager.Connect(nil)
	b := h.Manager.Connect(nil)

	w := doJSON(t, r, http.MethodPut, "/profile", a, map[string]any{"language": "uk", "interests": []string{"go", "go", "art"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/profile", a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "uk", body["language"])
	assert.Equal(t, []any{"art", "go"}, body["interests"])

	w = doJSON(t, r, http.MethodGet, "/profile", "ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/block", a, map[string]string{"blocked_user_id": b})
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/block", a, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/report", "", map[string]string{"reporter_id": a, "reported_user_id": b, "reason": "spam"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/report", a, map[string]string{"reported_user_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBearerToken(t *testing.T) {
	h := newTestHandler(nil)
	r := h.Router()
	a := h.Manager.Connect(nil)

	token, err := h.generateJWT(a)
	require.NoError(t, err)
	userID, err := h.validateToken(token)
	require.NoError(t, err)
	assert.Equal(t, a, userID)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := NewHandler(h.Manager, h.Hub, h.Complaints, nil, "another-secret")
	_, err = other.validateToken(token)
	assert.Error(t, err)
}

func readEvent(t *testing.T, conn *websocket.Conn, typ string) models.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev models.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == typ {
			return ev
		}
	}
}

// TestWebSocketSession drives two real WebSocket clients through connect,
// match, message and disconnect.
func TestWebSocketSession(t *testing.T) {
	h := newTestHandler(nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	connA, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer connA.Close()
	connB, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer connB.Close()

	idA := readEvent(t, connA, models.EventUserID)
	assert.NotEmpty(t, idA.Token)
	idB := readEvent(t, connB, models.EventUserID)

	require.NoError(t, connA.WriteJSON(models.InboundEvent{Type: models.InboundRequestUserID}))
	again := readEvent(t, connA, models.EventUserID)
	assert.Equal(t, idA.UserID, again.UserID)

	require.NoError(t, connA.WriteJSON(models.InboundEvent{Type: models.InboundStartChat, ChatType: models.CategoryText}))
	require.Eventually(t, func() bool {
		return h.Manager.Matcher.QueueLen(models.CategoryText) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, connB.WriteJSON(models.InboundEvent{Type: models.InboundStartChat, ChatType: models.CategoryText}))

	matchedA := readEvent(t, connA, models.EventMatched)
	matchedB := readEvent(t, connB, models.EventMatched)
	assert.Equal(t, idB.UserID, matchedA.PartnerID)
	assert.Equal(t, idA.UserID, matchedB.PartnerID)
	assert.Equal(t, matchedA.SessionID, matchedB.SessionID)

	require.NoError(t, connA.WriteJSON(models.InboundEvent{Type: models.InboundSendMessage, Text: "hi"}))
	msg := readEvent(t, connB, models.EventNewMessage)
	require.NotNil(t, msg.Message)
	assert.Equal(t, "hi", msg.Message.Text)
	assert.Equal(t, models.FromStranger, msg.Message.From)

	require.NoError(t, connA.Close())
	gone := readEvent(t, connB, models.EventPartnerDisconnected)
	assert.Equal(t, models.ReasonPartnerDisconnected, gone.Reason)
	require.Eventually(t, func() bool {
		return !h.Manager.Registry.IsActive(idA.UserID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketErrorReply(t *testing.T) {
	h := newTestHandler(nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn, models.EventUserID)

	require.NoError(t, conn.WriteJSON(models.InboundEvent{Type: models.InboundSendMessage, SessionID: "missing", Text: "hi"}))
	ev := readEvent(t, conn, models.EventError)
	assert.Equal(t, "Session not found or user not in session", ev.Error)
}
