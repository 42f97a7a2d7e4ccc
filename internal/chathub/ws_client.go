package chathub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"strangerlink/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufferSize = 256
)

// WebSocketClient реалізує інтерфейс chathub.Client
type WebSocketClient struct {
	UserID string
	// Token is re-sent on request_user_id.
	Token   string
	Conn    *websocket.Conn
	Manager *ManagerService
	Hub     *Hub
	Send    chan models.Event

	closeOnce sync.Once
}

// NewWebSocketClient wraps conn for userID.
func NewWebSocketClient(userID, token string, conn *websocket.Conn, m *ManagerService, hub *Hub) *WebSocketClient {
	return &WebSocketClient{
		UserID:  userID,
		Token:   token,
		Conn:    conn,
		Manager: m,
		Hub:     hub,
		Send:    make(chan models.Event, sendBufferSize),
	}
}

func (c *WebSocketClient) GetUserID() string                    { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Manager.Disconnect(c.UserID)
		c.Hub.Unregister(c)
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "user_id", c.UserID, "err", err)
			}
			return
		}

		var ev models.InboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("invalid frame from client", "user_id", c.UserID, "err", err)
			continue
		}
		if err := c.handle(ev); err != nil {
			c.replyError(ev, err)
		}
	}
}

// handle dispatches one inbound frame to the manager.
func (c *WebSocketClient) handle(ev models.InboundEvent) error {
	m := c.Manager
	switch ev.Type {
	case models.InboundRequestUserID:
		c.push(models.Event{Type: models.EventUserID, UserID: c.UserID, Token: c.Token})
		return nil
	case models.InboundSignal:
		return m.ForwardSignal(c.sessionID(ev), c.UserID, ev.Signal)
	case models.InboundTyping:
		return m.SetTyping(c.sessionID(ev), c.UserID, ev.IsTyping)
	case models.InboundConnectionQuality:
		return m.SetConnectionQuality(c.UserID, ev.Quality)
	case models.InboundUpdateProfile:
		if ev.Profile == nil {
			return ErrInvalidState
		}
		_, err := m.UpdateProfile(c.UserID, *ev.Profile)
		return err
	case models.InboundStartChat:
		category := ev.ChatType
		if category == "" {
			category = models.CategoryText
		}
		res, err := m.StartChat(c.UserID, category)
		if err != nil {
			return err
		}
		if res.Status == StatusWaiting {
			slog.Debug("client queued", "user_id", c.UserID, "estimated_wait", res.EstimatedWaitSeconds)
		}
		return nil
	case models.InboundSendMessage:
		_, err := m.SendMessage(c.sessionID(ev), c.UserID, ev.Text)
		return err
	case models.InboundLeave:
		return m.EndChat(c.sessionID(ev), c.UserID)
	}
	slog.Debug("ignoring unknown frame", "user_id", c.UserID, "type", ev.Type)
	return nil
}

// sessionID falls back to the user's current session when the frame has none.
func (c *WebSocketClient) sessionID(ev models.InboundEvent) string {
	if ev.SessionID != "" {
		return ev.SessionID
	}
	id, _ := c.Manager.Sessions.GetByUser(c.UserID)
	return id
}

func (c *WebSocketClient) replyError(ev models.InboundEvent, err error) {
	msg := "invalid request"
	switch {
	case errors.Is(err, ErrSuspended):
		msg = "Account suspended"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotAuthorized):
		msg = "Session not found or user not in session"
	}
	slog.Info("client request rejected", "user_id", c.UserID, "type", ev.Type, "err", err)
	c.push(models.Event{Type: models.EventError, SessionID: ev.SessionID, Error: msg})
}

// push delivers a direct reply through the hub so that it never races Close.
func (c *WebSocketClient) push(ev models.Event) {
	c.Hub.Notify(c.UserID, ev)
}

// writePump читає події з каналу Send і записує їх у WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				slog.Warn("websocket write failed", "user_id", c.UserID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
