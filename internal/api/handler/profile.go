package handler

import (
	"net/http"

	"strangerlink/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetProfile(c *gin.Context) {
	userID := callerID(c, "")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID required"})
		return
	}
	p, err := h.Manager.Profile(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID := callerID(c, "")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID required"})
		return
	}
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	p, err := h.Manager.UpdateProfile(userID, update)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "profile": p})
}

type blockRequest struct {
	UserID        string `json:"user_id"`
	BlockedUserID string `json:"blocked_user_id" binding:"required"`
}

func (h *Handler) Block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and blocked user ID required"})
		return
	}
	userID := callerID(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and blocked user ID required"})
		return
	}
	if err := h.Manager.Block(userID, req.BlockedUserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User blocked successfully"})
}

type reportRequest struct {
	ReporterID     string `json:"reporter_id"`
	ReportedUserID string `json:"reported_user_id" binding:"required"`
	Reason         string `json:"reason"`
}

func (h *Handler) Report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reporter ID and reported user ID required"})
		return
	}
	reporterID := callerID(c, req.ReporterID)
	if reporterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reporter ID and reported user ID required"})
		return
	}
	if req.Reason == "" {
		req.Reason = "No reason provided"
	}
	if _, err := h.Complaints.HandleReport(reporterID, req.ReportedUserID, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User reported successfully"})
}
