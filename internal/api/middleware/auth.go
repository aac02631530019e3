package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maildeck/core/internal/services"
)

const userIDKey = "user_id"

// BasicAuthMiddleware authenticates requests with HTTP Basic credentials
// against the user store and places the user ID in the request context.
func BasicAuthMiddleware(userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="maildeck"`)
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AUTH_FAILED",
					"message": "Missing credentials",
				},
			})
			c.Abort()
			return
		}

		user, err := userService.Authenticate(username, password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AUTH_FAILED",
					"message": "Invalid credentials",
				},
			})
			c.Abort()
			return
		}

		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

// GetUserIDFromContext extracts the authenticated user ID from the context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	val, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := val.(uint)
	return id, ok
}
