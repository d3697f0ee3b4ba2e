package timeentry

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"go-timeclock/internal/middleware"
	"go-timeclock/internal/rbac"
)

// RegisterRoutes mounts the entry routes. verifier may be nil; when set, the
// clock paths demand a device attestation token on top of the JWT.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, enforcer *rbac.Enforcer, verifier middleware.AttestationVerifier) {
	entries := r.Group("/time-entries")
	entries.Use(middleware.AuthMiddleware())
	entries.Use(middleware.ExtractUserID())
	{
		entries.GET("", middleware.RBACAuthorize(enforcer, "time_entry", "read"), h.GetAll)
		entries.GET("/:id", middleware.RBACAuthorize(enforcer, "time_entry", "read"), h.GetByID)
		// Mobile clock paths are rate limited per user; unreliable networks
		// retry aggressively and replays should hit the idempotency guard,
		// not melt the store.
		entries.POST("/clock-in",
			middleware.RBACAuthorize(enforcer, "time_entry", "create"),
			middleware.Attestation(verifier),
			middleware.RateLimitByUser(rate.Limit(2), 10),
			h.ClockIn,
		)
		entries.POST("/clock-out",
			middleware.RBACAuthorize(enforcer, "time_entry", "create"),
			middleware.Attestation(verifier),
			middleware.RateLimitByUser(rate.Limit(2), 10),
			h.ClockOut,
		)
		entries.PATCH("/:id", middleware.RBACAuthorize(enforcer, "time_entry", "update"), h.Update)
	}
}
