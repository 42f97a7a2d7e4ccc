package handler

import (
	"net/http"
	"time"

	"strangerlink/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) StartText(c *gin.Context)  { h.start(c, models.CategoryText) }
func (h *Handler) StartVideo(c *gin.Context) { h.start(c, models.CategoryVideo) }

func (h *Handler) start(c *gin.Context, category string) {
	userID := callerID(c, "")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID required"})
		return
	}
	if !h.Manager.Registry.IsActive(userID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User not connected via WebSocket"})
		return
	}
	if h.StartLimiter != nil && !h.StartLimiter.Allow(userID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		return
	}

	res, err := h.Manager.StartChat(userID, category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type sendRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
	UserID    string `json:"user_id"`
}

func (h *Handler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID, message, and user ID required"})
		return
	}
	userID := callerID(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID, message, and user ID required"})
		return
	}

	msg, err := h.Manager.SendMessage(req.SessionID, userID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message sent successfully", "message_id": msg.ID, "timestamp": msg.Timestamp})
}

type receiveRequest struct {
	SessionID      string     `json:"session_id" binding:"required"`
	UserID         string     `json:"user_id"`
	SinceTimestamp *time.Time `json:"since_timestamp"`
}

// Receive is the polling variant of /messages taking its cursor in the body.
func (h *Handler) Receive(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id or user_id"})
		return
	}
	userID := callerID(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id or user_id"})
		return
	}
	h.poll(c, req.SessionID, userID, req.SinceTimestamp)
}

// Messages returns the session log; ?since= takes an RFC 3339 timestamp.
func (h *Handler) Messages(c *gin.Context) {
	userID := callerID(c, "")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID required"})
		return
	}
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		since = &ts
	}
	h.poll(c, c.Param("session_id"), userID, since)
}

func (h *Handler) poll(c *gin.Context, sessionID, userID string, since *time.Time) {
	msgs, active, err := h.Manager.PollMessages(sessionID, userID, since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "session_active": active})
}

type disconnectRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	UserID    string `json:"user_id"`
}

func (h *Handler) Disconnect(c *gin.Context) {
	var req disconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID and user ID required"})
		return
	}
	userID := callerID(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID and user ID required"})
		return
	}
	if err := h.Manager.EndChat(req.SessionID, userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Disconnected successfully"})
}
