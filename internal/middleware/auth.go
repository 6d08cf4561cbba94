package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/services"
)

type AuthMiddleware struct {
	log     *logger.Logger
	authSvc services.AuthService
}

func NewAuthMiddleware(baseLog *logger.Logger, authSvc services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		log:     baseLog.With("middleware", "AuthMiddleware"),
		authSvc: authSvc,
	}
}

// RequireAuth resolves the caller's identity from the bearer token (or, for
// EventSource-style clients, the token query parameter) and attaches it to the
// request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing authorization token", "code": "authorization_error"},
			})
			return
		}
		ctx, err := m.authSvc.SetContextFromToken(c.Request.Context(), token)
		if err != nil {
			m.log.Warn("token rejected", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "invalid or expired token", "code": "authorization_error"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}
