package reservation

import (
	"errors"
	"net/http"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/pkg/response"
	"slotbook/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service         *Service
	defaultClientID string
	loc             *time.Location
}

func NewHandler(service *Service, defaultClientID string, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, defaultClientID: defaultClientID, loc: loc}
}

// RegisterRoutes mounts the widget-facing create endpoint on the public
// group and everything else behind admin auth.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.POST("/reservations", h.Create)

	admin.GET("/reservations", h.List)
	admin.GET("/reservations/:id", h.GetByID)
	admin.PATCH("/reservations/:id", h.Update)
	admin.DELETE("/reservations/:id", h.Cancel)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "Malformed reservation payload")
		return
	}
	if req.ClientID == "" {
		req.ClientID = h.defaultClientID
	}

	// Booking-window policy lives here, not in the availability engine.
	ok, err := h.service.WithinWindow(c.Request.Context(), req.ClientID, req.Datetime)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create reservation")
		return
	}
	if !ok {
		response.Error(c, http.StatusUnprocessableEntity, "OUTSIDE_WINDOW", "Datetime is outside the bookable window")
		return
	}

	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err, "CREATE_FAILED", "Failed to create reservation")
		return
	}

	if result.MirrorErr != nil {
		response.SuccessWithWarning(c, http.StatusCreated, result.Reservation, "reservation saved, calendar sync pending")
		return
	}
	response.Success(c, http.StatusCreated, result.Reservation)
}

func (h *Handler) GetByID(c *gin.Context) {
	r, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "FETCH_FAILED", "Failed to get reservation")
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) List(c *gin.Context) {
	f := repository.ReservationFilter{
		ClientID: c.GetString("client_id"),
		Status:   domain.ReservationStatus(c.Query("status")),
	}
	if v := c.Query("start"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_DATE", "start must be YYYY-MM-DD")
			return
		}
		f.From = t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_DATE", "end must be YYYY-MM-DD")
			return
		}
		f.To = t.AddDate(0, 0, 1)
	}

	list, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to list reservations")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservations": list})
}

func (h *Handler) Update(c *gin.Context) {
	var patch UpdateRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "Malformed patch payload")
		return
	}

	result, err := h.service.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err, "UPDATE_FAILED", "Failed to update reservation")
		return
	}

	if result.MirrorErr != nil {
		response.SuccessWithWarning(c, http.StatusOK, result.Reservation, "reservation updated, calendar sync pending")
		return
	}
	response.Success(c, http.StatusOK, result.Reservation)
}

func (h *Handler) Cancel(c *gin.Context) {
	r, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "CANCEL_FAILED", "Failed to cancel reservation")
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) writeError(c *gin.Context, err error, fallbackCode, fallbackMsg string) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
	case errors.Is(err, ErrSlotConflict):
		response.Error(c, http.StatusConflict, "SLOT_CONFLICT", "Requested slot is not available")
	case errors.Is(err, ErrCancelled):
		response.Error(c, http.StatusConflict, "ALREADY_CANCELLED", "Reservation is cancelled")
	default:
		response.Error(c, http.StatusInternalServerError, fallbackCode, fallbackMsg)
	}
}
