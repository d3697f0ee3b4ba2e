package sweeper

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-timeclock/internal/shared/apperror"
	"go-timeclock/internal/shared/response"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Run triggers a sweep pass on demand. ?dry_run=true previews the candidate
// list without touching any entry.
func (h *Handler) Run(c *gin.Context) {
	actorID := c.GetString("user_id_validated")
	dryRun := c.Query("dry_run") == "true"

	report, err := h.service.Run(c.Request.Context(), actorID, dryRun)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}
	response.Success(c, http.StatusOK, report, nil)
}
