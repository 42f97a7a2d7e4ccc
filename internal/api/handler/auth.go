package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenTTL    = 72 * time.Hour
	tokenIssuer = "strangerlink"
	ctxUserID   = "user_id"
)

var errInvalidToken = errors.New("invalid token")

// generateJWT генерує JWT з анонімним ID
func (h *Handler) generateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iss":     tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// validateToken перевіряє підпис і повертає user_id з claims
func (h *Handler) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return h.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", errInvalidToken
	}
	return userID, nil
}

// resolveUser identifies the caller from a Bearer token, the X-User-ID
// header or the user_id query parameter, in that order. Handlers fall back
// to ids in the request body when none is present.
func (h *Handler) resolveUser(c *gin.Context) {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		userID, err := h.validateToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
		return
	}
	if userID := c.GetHeader("X-User-ID"); userID != "" {
		c.Set(ctxUserID, userID)
	} else if userID := c.Query("user_id"); userID != "" {
		c.Set(ctxUserID, userID)
	}
	c.Next()
}

// callerID returns the resolved user id, or fallback when none was resolved.
func callerID(c *gin.Context, fallback string) string {
	if id := c.GetString(ctxUserID); id != "" {
		return id
	}
	return fallback
}
