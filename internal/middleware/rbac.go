package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

// RequireRoles admits only the listed roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "your role cannot perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireRoles(models.RoleAdmin).
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
