// File: middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"climb-calendar/logger"
)

// -------------- authentication middleware --------------

// AuthRequired rejects requests whose session is not signed in.
// It must run after SessionContext.
//
//	router.Use(AuthRequired(gate))
func AuthRequired(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gate.IsAuthenticated(c.Request.Context()) {
			logger.Warn.Printf("[AuthRequired] session %s is not signed in", SessionID(c))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		logger.Debug.Println("[AuthRequired] User authenticated - proceeding with request")
		c.Next()
	}
}
