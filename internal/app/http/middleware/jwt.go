package middleware

import (
	"net/http"
	"strings"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/lib/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
	KeyRole   = "role"
)

// AuthMiddleware verifies the bearer token and stores its claims on the
// context. Websocket handshakes may pass the token as ?token= instead.
func AuthMiddleware(tokens *jwt.Maker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearer(c.GetHeader("Authorization"))
		if tokenString == "" && websocket.IsWebSocketUpgrade(c.Request) {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			response.Fail(c, http.StatusUnauthorized, "Authorization header missing")
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireRole lets through callers holding any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(KeyRole)
		if role == "" {
			response.Fail(c, http.StatusUnauthorized, "Role not found in token")
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Fail(c, http.StatusForbidden, "Access denied")
	}
}

// Actor returns the authenticated caller set by AuthMiddleware.
func Actor(c *gin.Context) access.Actor {
	return access.Actor{UserID: c.GetUint(KeyUserID), Role: c.GetString(KeyRole)}
}

func UserID(c *gin.Context) uint {
	return c.GetUint(KeyUserID)
}
