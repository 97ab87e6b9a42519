package middleware

import (
	"context"
	"net/http"
	"strings"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey   = "user_id"
	ContextIdentityKey = "identity"
)

// Authenticator 由 service.UserService 实现
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Identity, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *gin.Context, id *model.Identity) {
	c.Set(ContextUserIDKey, id.UserID)
	c.Set(ContextIdentityKey, id)
	c.Request = c.Request.WithContext(pkg.WithUserID(c.Request.Context(), id.UserID))
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "missing or invalid authorization header"})
			return
		}

		// redis 校验是否是最新登录的 token，通过后续期
		id, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "invalid token or account logged in elsewhere"})
			return
		}

		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth 公开接口：带了有效 token 就注入身份，否则按未登录处理
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if id, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				setIdentity(c, id)
			}
		}
		c.Next()
	}
}

// IdentityFrom 未登录时返回 nil
func IdentityFrom(c *gin.Context) *model.Identity {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*model.Identity)
	return id
}
