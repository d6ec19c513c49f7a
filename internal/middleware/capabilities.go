package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"usersvc/api/internal/auth"
)

// RequireCapabilities gates a route on the authorization predicate.
// With no arguments it only demands an authenticated caller. The
// route's :id parameter is the ownership target for IS_OWN_USER.
func RequireCapabilities(capabilities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerIdentity(c)
		if !auth.Authorize(capabilities, caller, c.Param("id")) {
			if caller == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			} else {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			}
			return
		}
		c.Next()
	}
}
