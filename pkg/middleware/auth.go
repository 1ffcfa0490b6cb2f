package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roomline/service-booking/pkg/auth"
	"github.com/roomline/service-booking/pkg/response"
)

const claimsKey = "auth_claims"

// AuthMiddleware validates the bearer token and stores its claims.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the claims stored by AuthMiddleware.
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// RequireAuthority rejects requests whose claims carry none of authorities.
// It must run after AuthMiddleware.
func RequireAuthority(authorities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		for _, held := range claims.Authorities {
			for _, want := range authorities {
				if held == want {
					c.Next()
					return
				}
			}
		}
		response.Forbidden(c, "insufficient authority")
		c.Abort()
	}
}
