package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/educmun/creche-api/internal/middleware"
	"github.com/educmun/creche-api/internal/models"
	"github.com/educmun/creche-api/internal/service"
	appErrors "github.com/educmun/creche-api/pkg/errors"
	"github.com/educmun/creche-api/pkg/response"
)

// PlannedStatusRequest sets the intended next-cycle status.
type PlannedStatusRequest struct {
	Status        models.ApplicantStatus `json:"status" binding:"required"`
	Justification string                 `json:"justification"`
}

// BulkPlannedStatusRequest applies one status to many entries.
type BulkPlannedStatusRequest struct {
	ApplicantIDs  []string               `json:"applicant_ids" binding:"required,min=1"`
	Status        models.ApplicantStatus `json:"status" binding:"required"`
	Justification string                 `json:"justification"`
}

// PlannedSeatRequest sets the intended seat.
type PlannedSeatRequest struct {
	Seat models.SeatAssignment `json:"seat" binding:"required"`
}

// BulkPlannedSeatRequest applies one seat to many entries.
type BulkPlannedSeatRequest struct {
	ApplicantIDs []string              `json:"applicant_ids" binding:"required,min=1"`
	Seat         models.SeatAssignment `json:"seat" binding:"required"`
}

// PlanningHandler exposes the annual transition planning workflow.
type PlanningHandler struct {
	planning *service.PlanningService
	executor *service.TransitionExecutor
	metrics  *service.MetricsService
}

// NewPlanningHandler constructs PlanningHandler.
func NewPlanningHandler(planning *service.PlanningService, executor *service.TransitionExecutor, metrics *service.MetricsService) *PlanningHandler {
	return &PlanningHandler{planning: planning, executor: executor, metrics: metrics}
}

// StartSession godoc
// @Summary Start (or reload) the annual transition planning session
// @Tags Planning
// @Produce json
// @Param year query int false "Target cycle year (defaults to next year)"
// @Success 200 {object} response.Envelope
// @Router /planning/session [post]
func (h *PlanningHandler) StartSession(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	session, err := h.planning.StartSession(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Session godoc
// @Summary Current planning session entries and dirty flag
// @Tags Planning
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /planning/session [get]
func (h *PlanningHandler) Session(c *gin.Context) {
	session, err := h.planning.Session()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// SetStatus godoc
// @Summary Plan a status change for one applicant
// @Tags Planning
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body PlannedStatusRequest true "Planned status"
// @Success 204
// @Router /planning/entries/{id}/status [put]
func (h *PlanningHandler) SetStatus(c *gin.Context) {
	var req PlannedStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.planning.SetPlannedStatus(c.Request.Context(), c.Param("id"), req.Status, req.Justification); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetSeat godoc
// @Summary Plan a seat assignment for one applicant
// @Tags Planning
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body PlannedSeatRequest true "Planned seat"
// @Success 204
// @Router /planning/entries/{id}/seat [put]
func (h *PlanningHandler) SetSeat(c *gin.Context) {
	var req PlannedSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.planning.SetPlannedSeat(c.Request.Context(), c.Param("id"), req.Seat); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkSetStatus godoc
// @Summary Plan the same status change for a set of applicants
// @Tags Planning
// @Accept json
// @Produce json
// @Param payload body BulkPlannedStatusRequest true "Bulk planned status"
// @Success 204
// @Router /planning/bulk/status [put]
func (h *PlanningHandler) BulkSetStatus(c *gin.Context) {
	var req BulkPlannedStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.planning.BulkSetPlannedStatus(c.Request.Context(), req.ApplicantIDs, req.Status, req.Justification); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkSetSeat godoc
// @Summary Plan the same seat for a set of applicants
// @Tags Planning
// @Accept json
// @Produce json
// @Param payload body BulkPlannedSeatRequest true "Bulk planned seat"
// @Success 204
// @Router /planning/bulk/seat [put]
func (h *PlanningHandler) BulkSetSeat(c *gin.Context) {
	var req BulkPlannedSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.planning.BulkSetPlannedSeat(c.Request.Context(), req.ApplicantIDs, req.Seat); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Save godoc
// @Summary Snapshot the draft as the new baseline
// @Tags Planning
// @Produce json
// @Success 204
// @Router /planning/save [post]
func (h *PlanningHandler) Save(c *gin.Context) {
	if err := h.planning.Save(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Discard godoc
// @Summary Revert the draft to the last-saved baseline
// @Tags Planning
// @Produce json
// @Success 204
// @Router /planning/discard [post]
func (h *PlanningHandler) Discard(c *gin.Context) {
	if err := h.planning.Discard(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Execute godoc
// @Summary Commit the planning draft as a batch of remote mutations
// @Tags Planning
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /planning/execute [post]
func (h *PlanningHandler) Execute(c *gin.Context) {
	report, err := h.executor.Execute(c.Request.Context(), middleware.ActorValue(c))
	if err != nil {
		if h.metrics != nil {
			h.metrics.ObserveTransitionOutcome("failure", 1)
		}
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveTransitionOutcome("success", report.Operations)
	}
	response.JSON(c, http.StatusOK, report, nil)
}
