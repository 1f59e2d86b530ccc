// file: middleware/admin_required.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"climb-calendar/logger"
)

// AdminRequired lets through only sessions holding the admin role claim.
func AdminRequired(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if !gate.IsAuthenticated(ctx) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		isAdmin := gate.IsAdmin(ctx)
		logger.Debug.Printf("AdminRequired Middleware - isAdmin=%v", isAdmin)

		if !isAdmin {
			logger.Warn.Println("AdminRequired Middleware - Unauthorized attempt blocked")
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
