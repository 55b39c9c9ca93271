package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by Auth for downstream handlers.
const (
	ActorIDKey   = "actor_id"
	ActorNameKey = "actor_name"
	ActorRoleKey = "actor_role"
)

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Auth verifies a HS256 bearer token issued by the identity service
// and stashes the actor's identity on the request context.
func Auth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "No token provided")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if strings.TrimSpace(secret) == "" {
				return nil, errors.New("jwt secret not configured")
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid || claims.Subject == "" {
			abortUnauthorized(c, "Invalid token")
			return
		}

		c.Set(ActorIDKey, claims.Subject)
		c.Set(ActorNameKey, claims.Name)
		c.Set(ActorRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole gates a route group on the actor's role claim.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ActorRoleKey) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Access is restricted to role " + role,
				},
			})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
