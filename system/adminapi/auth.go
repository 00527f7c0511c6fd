package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// claims is the JWT payload issued for an admin session. A single shared
// secret signs every token; there is no per-operator identity beyond the
// subject field, matching the scope of this introspection surface.
type claims struct {
	jwt.StandardClaims
}

// IssueToken signs a bearer token for subject valid for ttl, using secret as
// the HS256 key. Intended for operator tooling (a CLI, a one-off script) to
// mint tokens out of band; the admin surface itself never issues tokens.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	c := claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(secret)
}

// requireBearer returns gin middleware that rejects requests lacking a valid
// HS256 bearer token signed with secret. A nil/empty secret disables auth
// entirely — the zero-config default for local use, matching spec.md's
// "admin surface is off by default" framing: when an operator doesn't
// configure a secret, it is their choice to run unauthenticated.
func requireBearer(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == "" || tokenString == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		var parsed claims
		_, err := jwt.ParseWithClaims(tokenString, &parsed, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.NewValidationError("unexpected signing method", jwt.ValidationErrorSignatureInvalid)
			}
			return secret, nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}

		c.Set("admin_subject", parsed.Subject)
		c.Next()
	}
}
