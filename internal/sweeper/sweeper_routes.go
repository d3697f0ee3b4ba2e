package sweeper

import (
	"github.com/gin-gonic/gin"

	"go-timeclock/internal/middleware"
	"go-timeclock/internal/rbac"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, enforcer *rbac.Enforcer) {
	grp := r.Group("/sweeper")
	grp.Use(middleware.AuthMiddleware())
	grp.Use(middleware.ExtractUserID())
	{
		grp.POST("/run", middleware.RBACAuthorize(enforcer, "sweeper", "run"), h.Run)
	}
}
