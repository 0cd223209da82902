package middleware

import (
	"net/http"
	"strings"

	"hunter_trials/internal/logger"
	"hunter_trials/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionIDKey is the gin context key holding the authenticated session id
const SessionIDKey = "session_id"

// JWT authenticates "Authorization: Bearer <token>" and stores the session id
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		sessionID, err := service.ParseJWT(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(SessionIDKey, sessionID)
		c.Request = c.Request.WithContext(logger.WithSession(c.Request.Context(), sessionID))
		c.Next()
	}
}
