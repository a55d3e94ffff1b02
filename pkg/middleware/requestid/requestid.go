// Package requestid tags every request with an id echoed in X-Request-ID.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerKey  = "X-Request-ID"
	contextKey = "request_id"
	maxLength  = 128
)

// Middleware reuses a well-formed incoming X-Request-ID or generates a UUID.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerKey)
		if !valid(reqID) {
			reqID = uuid.NewString()
		}

		c.Set(contextKey, reqID)
		c.Header(headerKey, reqID)
		c.Next()
	}
}

// Value returns the request ID stored in the gin context.
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}

// valid accepts printable ASCII ids up to maxLength so client ids cannot
// inject control characters into logs.
func valid(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
