package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tallysplit/tally/internal/auth"
)

const (
	// SessionIDKey is the gin context key for the authenticated session id.
	SessionIDKey = "session_id"
)

// GetSessionID extracts the authenticated session id from the context.
// Returns empty string if not set.
func GetSessionID(c *gin.Context) string {
	id, _ := c.Get(SessionIDKey)
	s, _ := id.(string)
	return s
}

// RequireSession validates the bearer token and checks that it is scoped
// to the session named in the :id path parameter. Requests with a missing,
// invalid or mismatched token are rejected before the handler runs.
func RequireSession(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		if id := c.Param("id"); id != "" && id != claims.SessionID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is not valid for this session"})
			return
		}

		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}
