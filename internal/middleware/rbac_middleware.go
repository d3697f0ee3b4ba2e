package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-timeclock/internal/rbac"
	"go-timeclock/internal/shared/apperror"
	"go-timeclock/internal/shared/response"
)

func RBACAuthorize(enforcer *rbac.Enforcer, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			e := apperror.ErrUnauthorized
			response.Error(c, e.HTTPStatus, e.Code, e.Message, nil)
			c.Abort()
			return
		}

		allowed, err := enforcer.Allowed(role, resource, action)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
			c.Abort()
			return
		}

		if !allowed {
			e := apperror.ErrForbidden
			response.Error(c, e.HTTPStatus, e.Code, e.Message, resource+":"+action)
			c.Abort()
			return
		}
		c.Next()
	}
}
