package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/educmun/creche-api/pkg/errors"
	"github.com/educmun/creche-api/pkg/response"
)

// ContextActorKey is the gin context key storing the acting operator identity.
const ContextActorKey = "currentActor"

// Actor resolves the operator identity from a bearer token issued by the
// identity service. Only the subject is consumed here; token issuance and
// session management live elsewhere.
func Actor(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token"))
			c.Abort()
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject"))
			c.Abort()
			return
		}

		c.Set(ContextActorKey, subject)
		c.Next()
	}
}

// ActorValue returns the operator identity stored in the context.
func ActorValue(c *gin.Context) string {
	if v, ok := c.Get(ContextActorKey); ok {
		if actor, ok := v.(string); ok {
			return actor
		}
	}
	return ""
}
