package middleware

import (
	"github.com/gin-gonic/gin"
)

// CacheControl sets the Cache-Control directive for every response of the route.
func CacheControl(directive string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", directive)
		c.Next()
	}
}
