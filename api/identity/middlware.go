package identity

import (
	"net/http"
	"strings"

	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextOperatorClaims is the key used to store operator claims in the Gin context.
	ContextOperatorClaims = "operatorClaims"

	operatorIDClaim = "operatorID"
)

func Authorize(ts i.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Retrieve the access token from the Authorization header.
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Status(http.StatusUnauthorized) // No token found in the header.
			c.Abort()
			return
		}

		// Split the "Bearer" prefix from the token.
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Status(http.StatusUnauthorized) // Malformed Authorization header.
			c.Abort()
			return
		}

		claims, err := ts.Decode(parts[1])
		if err != nil {
			c.Status(http.StatusUnauthorized)
			c.Abort()
			return
		}

		// Attach operator claims to the request context for further use.
		c.Set(ContextOperatorClaims, claims)
		c.Next()
	}
}

// OperatorID returns the id of the operator the request was authorized for.
func OperatorID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(ContextOperatorClaims)
	if !ok {
		return uuid.Nil, false
	}
	claims, ok := raw.(map[string]interface{})
	if !ok {
		return uuid.Nil, false
	}
	s, ok := claims[operatorIDClaim].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}
