package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"usersvc/api/internal/auth"
	"usersvc/api/internal/security"
)

// SessionCookie carries the session token as "Bearer <token>". The
// Authorization header is accepted as a fallback for non-browser
// clients.
const SessionCookie = "accessToken"

const identityKey = "caller_identity"

// Identity derives the caller identity once per request. A missing
// credential leaves the caller anonymous; a present but malformed one
// fails the request; a well-formed token that does not verify degrades
// to anonymous.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
			raw = cookie
		} else if header := c.GetHeader("Authorization"); header != "" {
			raw = header
		}

		if raw != "" {
			token, err := auth.ParseBearer(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}

			if claims := security.VerifySession(token, secret); claims != nil {
				c.Set(identityKey, &auth.Identity{
					ID:          claims.UserID,
					Email:       claims.Email,
					Name:        claims.Name,
					Role:        claims.Role,
					Permissions: claims.Permissions,
					Verified:    claims.Verified,
				})
			}
		}

		c.Next()
	}
}

// CallerIdentity returns the derived identity, or nil for anonymous
// requests.
func CallerIdentity(c *gin.Context) *auth.Identity {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil
	}
	identity, ok := value.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
