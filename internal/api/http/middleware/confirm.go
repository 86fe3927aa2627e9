package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picokeys/pico-bridge/internal/auth"
)

const confirmHeader = "X-Confirm-Token"

// RequireConfirmation gates a destructive endpoint on a previously issued
// confirmation token for the same action.
func RequireConfirmation(config auth.Config, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(confirmHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "destructive operation requires a confirmation token",
			})
			return
		}
		if err := auth.ValidateToken(config, token, action); err != nil {
			slog.Warn("Rejected confirmation token",
				"action", action, "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid confirmation token",
			})
			return
		}
		c.Next()
	}
}
