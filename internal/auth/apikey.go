package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const headerName = "X-API-Key"

// APIKeyMiddleware validates the API key from the X-API-Key header against
// the configured key list. An empty list disables authentication.
func APIKeyMiddleware(apiKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(apiKeys) == 0 {
			c.Next()
			return
		}

		provided := c.GetHeader(headerName)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		for _, key := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "invalid API key",
		})
	}
}
