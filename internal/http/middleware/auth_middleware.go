package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/you/clientcore/domain"
	"github.com/you/clientcore/internal/http/handlers"
)

// Context keys set by AuthMiddleware
const (
	SubjectKey   = "subject"
	SessionIDKey = "session_id"
)

// AuthMiddleware creates authentication middleware. It accepts only
// "Bearer <access token>" and stores the decoded claims on the context.
func AuthMiddleware(tokenSvc domain.TokenService) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handlers.AbortWithError(c, domain.ErrTokenInvalid)
			return
		}

		// Check Bearer token format
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || strings.TrimSpace(tokenParts[1]) == "" {
			handlers.AbortWithError(c, domain.ErrTokenInvalid)
			return
		}

		claims, err := tokenSvc.DecodeAccess(strings.TrimSpace(tokenParts[1]))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				err = domain.ErrAccessTokenExpired
			case domain.KindOf(err) == domain.KindInternal:
				err = domain.ErrTokenInvalid
			}
			handlers.AbortWithError(c, err)
			return
		}

		c.Set(handlers.ClaimsKey, claims)
		c.Set(SubjectKey, claims.Subject)
		c.Set(SessionIDKey, claims.SessionID)

		c.Next()
	})
}
