package middleware

import (
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gin-gonic/gin"
)

const BackendModeHeader = "X-Backend-Mode"

// BackendMode tells clients whether the response came from live storage or
// the simulated dataset, as of the moment the request arrived.
func BackendMode(breaker *health.Breaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set(BackendModeHeader, breaker.Mode())
		c.Next()
	}
}
