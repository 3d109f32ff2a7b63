package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health serves the liveness probe from the engine root, outside the API
// prefix the route group is mounted on.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && c.Request.URL.Path == "/healthz" {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			c.Abort()
			return
		}
		c.Next()
	}
}
