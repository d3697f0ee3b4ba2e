package invoice

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go-timeclock/internal/middleware"
	"go-timeclock/internal/rbac"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, enforcer *rbac.Enforcer, rdb *redis.Client) {
	grp := r.Group("/invoices")
	grp.Use(middleware.AuthMiddleware())
	grp.Use(middleware.ExtractUserID())
	{
		grp.GET("", middleware.RBACAuthorize(enforcer, "invoice", "read"), h.GetAll)
		grp.GET("/:id", middleware.RBACAuthorize(enforcer, "invoice", "read"), h.GetByID)
		grp.POST("/from-time",
			middleware.RBACAuthorize(enforcer, "invoice", "create"),
			middleware.Idempotency(rdb),
			h.CreateFromTime,
		)
	}
}
