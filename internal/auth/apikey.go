// Package auth holds the API-key guard for the management surface.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiKeyHeader carries the static key on guarded routes.
const apiKeyHeader = "X-API-Key"

// APIKeyMiddleware guards a route group with a static key. An empty
// configured key disables the check entirely; the public matching
// entry points never pass through it.
//
// A request without the header gets 401, a request with the wrong key
// gets 403. The comparison is constant-time.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(apiKeyHeader)
		switch {
		case provided == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
		case subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
		default:
			c.Next()
		}
	}
}
