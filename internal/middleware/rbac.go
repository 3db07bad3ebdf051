package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

// RequireRoles lets the request through when the acting user holds one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return requireRoles("insufficient role for this action", roles...)
}

// RequireReviewer restricts review routes to managers and HR.
func RequireReviewer() gin.HandlerFunc {
	return requireRoles("only managers can review requests", models.RoleManager, models.RoleHR)
}

// RequireHR restricts maintenance routes to HR.
func RequireHR() gin.HandlerFunc {
	return requireRoles("only HR can run maintenance jobs", models.RoleHR)
}

func requireRoles(denied string, roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[actor.Role]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, denied))
		c.Abort()
	}
}
