package review

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go-timeclock/internal/middleware"
	"go-timeclock/internal/rbac"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, enforcer *rbac.Enforcer, rdb *redis.Client) {
	grp := r.Group("/time-entries")
	grp.Use(middleware.AuthMiddleware())
	grp.Use(middleware.ExtractUserID())
	{
		grp.POST("/bulk-approve",
			middleware.RBACAuthorize(enforcer, "time_entry", "approve"),
			middleware.Idempotency(rdb),
			h.BulkApprove,
		)
	}
}
