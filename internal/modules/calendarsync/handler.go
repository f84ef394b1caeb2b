package calendarsync

import (
	"errors"
	"net/http"

	"slotbook/internal/domain"
	"slotbook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the sync and business-hours admin surface;
// disconnecting the calendar is owner-only.
func (h *Handler) RegisterRoutes(admin, owner *gin.RouterGroup) {
	admin.GET("/calendar/auth-url", h.AuthURL)
	admin.POST("/calendar/connect", h.CompleteSetup)
	admin.GET("/calendar/status", h.Status)
	owner.DELETE("/calendar", h.Disconnect)

	admin.GET("/business-hours", h.GetBusinessHours)
	admin.PUT("/business-hours", h.UpdateBusinessHours)
}

func (h *Handler) AuthURL(c *gin.Context) {
	url := h.service.AuthURL(c.GetString("client_id"))
	response.Success(c, http.StatusOK, gin.H{"auth_url": url})
}

func (h *Handler) CompleteSetup(c *gin.Context) {
	var req CompleteSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "An authorization code is required")
		return
	}

	sync, err := h.service.CompleteSetup(c.Request.Context(), c.GetString("client_id"), req.Code)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		response.Error(c, http.StatusBadGateway, "CONNECT_FAILED", "Could not complete calendar connection")
		return
	}
	sync.Credential = domain.Credential{}
	response.Success(c, http.StatusOK, sync)
}

func (h *Handler) Status(c *gin.Context) {
	sync, err := h.service.Status(c.Request.Context(), c.GetString("client_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to load sync status")
		return
	}
	response.Success(c, http.StatusOK, sync)
}

func (h *Handler) Disconnect(c *gin.Context) {
	if err := h.service.Disconnect(c.Request.Context(), c.GetString("client_id")); err != nil {
		if errors.Is(err, ErrNotConnected) {
			response.Error(c, http.StatusNotFound, "NOT_CONNECTED", "No calendar is connected")
			return
		}
		response.Error(c, http.StatusInternalServerError, "DISCONNECT_FAILED", "Failed to disconnect calendar")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"disconnected": true})
}

func (h *Handler) GetBusinessHours(c *gin.Context) {
	hours, err := h.service.GetBusinessHours(c.Request.Context(), c.GetString("client_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to load business hours")
		return
	}
	response.Success(c, http.StatusOK, hours)
}

func (h *Handler) UpdateBusinessHours(c *gin.Context) {
	var req BusinessHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "Malformed business hours payload")
		return
	}

	hours := &domain.BusinessHours{
		ClientID:            c.GetString("client_id"),
		Days:                req.Days,
		SlotIntervalMinutes: req.SlotIntervalMinutes,
		Window:              req.Window,
	}
	if err := h.service.UpdateBusinessHours(c.Request.Context(), hours); err != nil {
		if errors.Is(err, ErrValidation) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update business hours")
		return
	}
	response.Success(c, http.StatusOK, hours)
}
