package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/dm-service/pkg/jwt"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/response"
)

const (
	UsernameKey   = log.FieldUsername
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// TokenCookie and TokenQueryParam carry the token for browser and
	// WebSocket clients that cannot set headers.
	TokenCookie     = "token"
	TokenQueryParam = "token"
)

// AuthMiddleware validates locally issued JWT tokens.
type AuthMiddleware struct {
	tokens *jwt.Manager
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// TokenFromRequest returns the bearer token, falling back to the token
// cookie and then the token query parameter.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get(AuthHeaderKey); strings.HasPrefix(authHeader, BearerPrefix) {
		return strings.TrimPrefix(authHeader, BearerPrefix)
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(TokenQueryParam)
}

// Identify returns the username carried by r's token, or "" if r carries no
// valid token.
func (m *AuthMiddleware) Identify(r *http.Request) string {
	token := TokenFromRequest(r)
	if token == "" {
		return ""
	}
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return ""
	}
	return claims.Username
}

// RequireAuth returns a Gin middleware that rejects requests without a
// valid token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			response.Unauthorized(c, "missing token")
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			response.Unauthorized(c, err.Error())
			return
		}

		c.Set(UsernameKey, claims.Username)

		c.Next()
	}
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
