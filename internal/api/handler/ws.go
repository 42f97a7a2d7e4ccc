package handler

import (
	"log/slog"
	"net/http"

	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket. Кожне з'єднання
// отримує новий анонімний ID, який одразу надсилається подією user_id.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	userID := h.Manager.Connect(nil)
	token, err := h.generateJWT(userID)
	if err != nil {
		slog.Error("failed to sign token", "user_id", userID, "err", err)
	}

	client := chathub.NewWebSocketClient(userID, token, conn, h.Manager, h.Hub)
	h.Hub.Register(client)
	client.Run()

	h.Hub.Notify(userID, models.Event{Type: models.EventUserID, UserID: userID, Token: token})
}
