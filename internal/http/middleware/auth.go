package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"techservice/internal/model"
	"techservice/internal/session"
)

const (
	principalContextKey = "principal"
	tokenContextKey     = "sessionToken"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
)

// SessionLoader resolves a bearer token to its session.
type SessionLoader interface {
	Load(ctx context.Context, token string) (*session.Session, error)
}

func Auth(sessions SessionLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawHeader := c.GetHeader(authorizationHeader)
		if rawHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header missing"})
			return
		}

		parts := strings.SplitN(rawHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		token := strings.TrimSpace(parts[1])
		sess, err := sessions.Load(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(principalContextKey, sess.Principal)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// RequireRole rejects principals whose role is not one of roles. It must run
// after Auth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	}
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}

	principal, ok := value.(model.Principal)
	if !ok {
		return model.Principal{}, false
	}

	return principal, true
}

// SessionToken returns the bearer token the request was authenticated with.
func SessionToken(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}
