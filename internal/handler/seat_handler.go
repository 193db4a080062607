package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/educmun/creche-api/internal/service"
	"github.com/educmun/creche-api/pkg/response"
)

// SeatHandler exposes seat occupancy.
type SeatHandler struct {
	seats *service.SeatService
}

// NewSeatHandler constructs SeatHandler.
func NewSeatHandler(seats *service.SeatService) *SeatHandler {
	return &SeatHandler{seats: seats}
}

// List godoc
// @Summary List seats with occupancy
// @Tags Seats
// @Produce json
// @Param facilityId query string false "Filter by facility"
// @Success 200 {object} response.Envelope
// @Router /seats [get]
func (h *SeatHandler) List(c *gin.Context) {
	seats, err := h.seats.List(c.Request.Context(), c.Query("facilityId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}
