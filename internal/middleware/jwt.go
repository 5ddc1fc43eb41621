package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
	"github.com/Manchinn/cslogbook-reconciler/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// AdminJWT protects the trigger endpoints: a valid HS256 bearer token with
// an administrative role is required.
func AdminJWT(secret string) gin.HandlerFunc {
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

		claims, err := parseToken(parts[1], secret)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token"))
			c.Abort()
			return
		}

		if claims.Role != models.RoleAdmin && claims.Role != models.RoleSuperAdmin {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func parseToken(raw, secret string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &models.JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}
