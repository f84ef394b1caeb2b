package availability

import (
	"net/http"
	"time"

	"slotbook/internal/pkg/response"

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

func (h *Handler) RegisterRoutes(public *gin.RouterGroup) {
	public.GET("/availability", h.GetAvailability)
}

// GetAvailability serves the widget's slot query: either a single date or
// a start/end range.
func (h *Handler) GetAvailability(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = h.defaultClientID
	}

	var from, to time.Time
	var err error
	if d := c.Query("date"); d != "" {
		from, err = time.ParseInLocation("2006-01-02", d, h.loc)
		to = from
	} else {
		from, err = time.ParseInLocation("2006-01-02", c.Query("start"), h.loc)
		if err == nil {
			to, err = time.ParseInLocation("2006-01-02", c.Query("end"), h.loc)
		}
	}
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_DATE", "Expected date or start/end in YYYY-MM-DD form")
		return
	}
	if to.Before(from) {
		response.Error(c, http.StatusBadRequest, "INVALID_RANGE", "end must not be before start")
		return
	}
	if to.Sub(from) > 62*24*time.Hour {
		response.Error(c, http.StatusBadRequest, "RANGE_TOO_WIDE", "Range is limited to two months")
		return
	}

	slots, err := h.service.ComputeSlots(c.Request.Context(), clientID, from, to)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "AVAILABILITY_FAILED", "Failed to compute availability")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"slots": slots})
}
