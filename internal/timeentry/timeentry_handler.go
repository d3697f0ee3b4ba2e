package timeentry

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"go-timeclock/internal/rbac"
	"go-timeclock/internal/shared/apperror"
	"go-timeclock/internal/shared/response"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func isPrivilegedRole(role string) bool {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case rbac.RoleAdmin, rbac.RoleManager:
		return true
	default:
		return false
	}
}

func (h *Handler) ClockIn(c *gin.Context) {
	companyID := c.GetString("company_id")
	userID := c.GetString("user_id_validated")

	var payload ClockPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeServiceError(c, apperror.MapValidationError(err))
		return
	}
	req, err := NormalizeClockIn(payload)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp, err := h.service.ClockIn(c.Request.Context(), companyID, userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) ClockOut(c *gin.Context) {
	companyID := c.GetString("company_id")
	userID := c.GetString("user_id_validated")

	var payload ClockPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeServiceError(c, apperror.MapValidationError(err))
		return
	}
	req, err := NormalizeClockOut(payload)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if req.EntryID == "" {
		req.EntryID = c.Param("id")
	}

	resp, err := h.service.ClockOut(c.Request.Context(), companyID, userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Update(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := c.GetString("user_id_validated")
	role := c.GetString("role")

	var req UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.UpdateEntry(c.Request.Context(), companyID, actorID, role, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetAll(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := c.GetString("user_id_validated")
	canReadAll := isPrivilegedRole(c.GetString("role"))

	resp, err := h.service.GetAll(c.Request.Context(), companyID, actorID, canReadAll)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 {
		pageSize = 20
	}

	total := int64(len(resp))
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(resp) {
		start = len(resp)
	}
	if end > len(resp) {
		end = len(resp)
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, resp[start:end], &meta)
}

func (h *Handler) GetByID(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := c.GetString("user_id_validated")
	canReadAll := isPrivilegedRole(c.GetString("role"))

	resp, err := h.service.GetByID(c.Request.Context(), companyID, actorID, canReadAll, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
