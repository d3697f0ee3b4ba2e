package review

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go-timeclock/internal/shared/apperror"
	"go-timeclock/internal/shared/response"
)

type Handler struct {
	service Service
	rdb     *redis.Client
}

func NewHandler(service Service, rdb *redis.Client) *Handler {
	return &Handler{service: service, rdb: rdb}
}

func (h *Handler) BulkApprove(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := c.GetString("user_id_validated")

	var req BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.releaseLock(c)
		httpErr := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	resp, err := h.service.BulkApprove(c.Request.Context(), companyID, actorID, req)
	if err != nil {
		h.releaseLock(c)
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	h.cacheResult(c, resp)
	response.Success(c, http.StatusOK, resp, nil)
}

// releaseLock frees the middleware's in-flight lock on failure so the caller
// can retry with the same Idempotency-Key.
func (h *Handler) releaseLock(c *gin.Context) {
	if h.rdb == nil {
		return
	}
	if lockKey := c.GetString("idempotency_lock_key"); lockKey != "" {
		h.rdb.Del(c.Request.Context(), lockKey)
	}
}

func (h *Handler) cacheResult(c *gin.Context, resp BulkApproveResponse) {
	if h.rdb == nil {
		return
	}
	cacheKey := c.GetString("idempotency_cache_key")
	lockKey := c.GetString("idempotency_lock_key")
	if cacheKey == "" {
		return
	}
	if body, err := json.Marshal(resp); err == nil {
		h.rdb.Set(c.Request.Context(), cacheKey, body, 24*time.Hour)
	}
	if lockKey != "" {
		h.rdb.Del(c.Request.Context(), lockKey)
	}
}
