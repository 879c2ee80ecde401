package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/response"
	"fintrack/internal/services"
)

// Context keys set by Auth for downstream handlers.
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextJTI    = "jti"
)

// Auth verifies the bearer token and sets the caller's identity in the
// context. The token must be a valid JWT whose JTI still maps to a live
// auth_tokens row; a revoked or expired token fails with 401 before any
// resource lookup happens.
func Auth(tokens services.TokenServicer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			response.Error(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextJTI, claims.ID)
		c.Next()
	}
}
