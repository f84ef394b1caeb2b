package mailer

import (
	"errors"
	"net/http"
	"strconv"

	"slotbook/internal/domain"
	"slotbook/internal/pkg/response"
	"slotbook/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts template management on the admin group; deleting a
// template is owner-only.
func (h *Handler) RegisterRoutes(admin, owner *gin.RouterGroup) {
	admin.GET("/templates", h.ListTemplates)
	admin.POST("/templates", h.CreateTemplate)
	admin.PUT("/templates/:id", h.UpdateTemplate)
	owner.DELETE("/templates/:id", h.DeleteTemplate)
	admin.POST("/templates/:id/test", h.SendTest)

	admin.GET("/email-logs", h.ListLogs)
	admin.GET("/reservations/:id/schedules", h.SchedulesForReservation)
}

func (h *Handler) ListTemplates(c *gin.Context) {
	list, err := h.service.ListTemplates(c.Request.Context(), c.GetString("client_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to list templates")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"templates": list})
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "Malformed template payload")
		return
	}

	tpl := templateFromRequest(req, c.GetString("client_id"))
	if err := h.service.CreateTemplate(c.Request.Context(), tpl); err != nil {
		h.writeError(c, err, "CREATE_FAILED", "Failed to create template")
		return
	}
	response.Success(c, http.StatusCreated, tpl)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "Malformed template payload")
		return
	}

	tpl := templateFromRequest(req, c.GetString("client_id"))
	tpl.ID = c.Param("id")
	if err := h.service.UpdateTemplate(c.Request.Context(), tpl); err != nil {
		h.writeError(c, err, "UPDATE_FAILED", "Failed to update template")
		return
	}
	response.Success(c, http.StatusOK, tpl)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.service.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "DELETE_FAILED", "Failed to delete template")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) SendTest(c *gin.Context) {
	var req TestSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "A valid recipient email is required")
		return
	}

	if err := h.service.SendTest(c.Request.Context(), c.Param("id"), req.To); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Template not found")
			return
		}
		response.Error(c, http.StatusBadGateway, "SEND_FAILED", "Test email could not be delivered")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

func (h *Handler) ListLogs(c *gin.Context) {
	f := repository.EmailLogFilter{
		TemplateID: c.Query("template_id"),
		Status:     domain.LogStatus(c.Query("status")),
	}
	if v := c.Query("reservation_id"); v != "" {
		f.ReservationID = v
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	logs, err := h.service.ListLogs(c.Request.Context(), f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to list email logs")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logs": logs})
}

func (h *Handler) SchedulesForReservation(c *gin.Context) {
	list, err := h.service.SchedulesForReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to list schedules")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"schedules": list})
}

func (h *Handler) writeError(c *gin.Context, err error, fallbackCode, fallbackMsg string) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Template not found")
	default:
		response.Error(c, http.StatusInternalServerError, fallbackCode, fallbackMsg)
	}
}

func templateFromRequest(req TemplateRequest, clientID string) *domain.EmailTemplate {
	return &domain.EmailTemplate{
		ClientID: clientID,
		Name:     req.Name,
		Type:     domain.TemplateType(req.Type),
		Subject:  req.Subject,
		Body:     req.Body,
		Timing:   req.Timing,
	}
}
