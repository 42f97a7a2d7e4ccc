package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/complaint"

	"github.com/gin-gonic/gin"
)

// Limiter throttles a key; ratelimit.FixedWindowLimiter satisfies it.
type Limiter interface {
	Allow(key string) bool
}

// Handler містить посилання на ChatHub
type Handler struct {
	Manager    *chathub.ManagerService
	Hub        *chathub.Hub
	Complaints *complaint.Service
	// StartLimiter may be nil, in which case /start is not throttled.
	StartLimiter Limiter

	jwtSecret []byte
}

func NewHandler(m *chathub.ManagerService, hub *chathub.Hub, complaints *complaint.Service, limiter Limiter, jwtSecret string) *Handler {
	return &Handler{
		Manager:      m,
		Hub:          hub,
		Complaints:   complaints,
		StartLimiter: limiter,
		jwtSecret:    []byte(jwtSecret),
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", h.Health)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/", h.resolveUser)
	api.POST("/start", h.StartText)
	api.POST("/start_video", h.StartVideo)
	api.GET("/profile", h.GetProfile)
	api.PUT("/profile", h.UpdateProfile)
	api.POST("/block", h.Block)
	api.POST("/report", h.Report)
	api.POST("/send", h.Send)
	api.POST("/receive", h.Receive)
	api.GET("/messages/:session_id", h.Messages)
	api.POST("/disconnect", h.Disconnect)
	return r
}

// Health reports liveness and live counters.
func (h *Handler) Health(c *gin.Context) {
	stats := h.Manager.Stats()
	if h.Hub != nil {
		stats.ConnectedUsers = h.Hub.Len()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Stranger chat backend is running",
		"policy":  h.Manager.Matcher.Policy().String(),
		"stats":   stats,
	})
}

// writeError maps core errors to the public responses. Internal details are
// never exposed.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chathub.ErrSuspended):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account suspended"})
	case errors.Is(err, chathub.ErrNotFound), errors.Is(err, chathub.ErrNotAuthorized):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or user not in session"})
	case errors.Is(err, chathub.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	default:
		slog.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
