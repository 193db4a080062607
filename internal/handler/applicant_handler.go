package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/educmun/creche-api/internal/middleware"
	"github.com/educmun/creche-api/internal/models"
	"github.com/educmun/creche-api/internal/service"
	appErrors "github.com/educmun/creche-api/pkg/errors"
	"github.com/educmun/creche-api/pkg/response"
)

// ApplicantHandler exposes the enrollment lifecycle endpoints.
type ApplicantHandler struct {
	applicants *service.ApplicantService
	deadlines  *service.DeadlineMonitor
}

// NewApplicantHandler constructs ApplicantHandler.
func NewApplicantHandler(applicants *service.ApplicantService, deadlines *service.DeadlineMonitor) *ApplicantHandler {
	return &ApplicantHandler{applicants: applicants, deadlines: deadlines}
}

// List godoc
// @Summary List applicants
// @Tags Applicants
// @Produce json
// @Param status query string false "Filter by lifecycle status"
// @Param facilityId query string false "Filter by current or preferred facility"
// @Param search query string false "Search by child or guardian name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applicants [get]
func (h *ApplicantHandler) List(c *gin.Context) {
	var filter models.ApplicantFilter
	filter.Status = models.ApplicantStatus(strings.ToUpper(c.Query("status")))
	filter.FacilityID = c.Query("facilityId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	if filter.Status != "" && !filter.Status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status filter"))
		return
	}

	applicants, pagination, err := h.applicants.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicants, pagination)
}

// Get godoc
// @Summary Get applicant detail
// @Tags Applicants
// @Produce json
// @Param id path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id} [get]
func (h *ApplicantHandler) Get(c *gin.Context) {
	detail, err := h.applicants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Register godoc
// @Summary Register a child on the waitlist
// @Tags Applicants
// @Accept json
// @Produce json
// @Param payload body service.RegisterApplicantRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /applicants [post]
func (h *ApplicantHandler) Register(c *gin.Context) {
	var req service.RegisterApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	applicant, err := h.applicants.Register(c.Request.Context(), req, middleware.ActorValue(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, applicant)
}

// Waitlist godoc
// @Summary Ranked waitlist with the called-up section
// @Tags Waitlist
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /waitlist [get]
func (h *ApplicantHandler) Waitlist(c *gin.Context) {
	view, err := h.applicants.Waitlist(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// CallUp godoc
// @Summary Offer a seat to an applicant
// @Tags Applicants
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.CallUpRequest true "Call-up payload"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/call-up [post]
func (h *ApplicantHandler) CallUp(c *gin.Context) {
	var req service.CallUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	applicant, err := h.applicants.CallUp(c.Request.Context(), c.Param("id"), req, middleware.ActorValue(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// Confirm godoc
// @Summary Confirm enrollment into the offered seat
// @Tags Applicants
// @Produce json
// @Param id path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/confirm [post]
func (h *ApplicantHandler) Confirm(c *gin.Context) {
	applicant, err := h.applicants.Confirm(c.Request.Context(), c.Param("id"), middleware.ActorValue(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// Refuse godoc
// @Summary Record a declined convocation
// @Tags Applicants
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.JustifiedRequest true "Justification"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/refuse [post]
func (h *ApplicantHandler) Refuse(c *gin.Context) {
	h.justified(c, h.applicants.Refuse)
}

// Requeue godoc
// @Summary Send an unresponsive applicant to the end of the queue
// @Tags Applicants
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.JustifiedRequest true "Justification"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/requeue [post]
func (h *ApplicantHandler) Requeue(c *gin.Context) {
	h.justified(c, h.applicants.Requeue)
}

// Withdraw godoc
// @Summary Withdraw an applicant from the program
// @Tags Applicants
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.JustifiedRequest true "Justification"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/withdraw [post]
func (h *ApplicantHandler) Withdraw(c *gin.Context) {
	h.justified(c, h.applicants.Withdraw)
}

// TransferRequest godoc
// @Summary Flag an enrolled child for transfer to another facility
// @Tags Applicants
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.TransferRequestPayload true "Desired facility"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/transfer-request [post]
func (h *ApplicantHandler) TransferRequest(c *gin.Context) {
	var req service.TransferRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	applicant, err := h.applicants.RequestTransfer(c.Request.Context(), c.Param("id"), req, middleware.ActorValue(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// Reactivate godoc
// @Summary Return a withdrawn or refused applicant to the waitlist
// @Tags Applicants
// @Produce json
// @Param id path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/reactivate [post]
func (h *ApplicantHandler) Reactivate(c *gin.Context) {
	applicant, err := h.applicants.Reactivate(c.Request.Context(), c.Param("id"), middleware.ActorValue(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// DeadlineStream godoc
// @Summary Stream live deadline readings for a called-up applicant
// @Tags Applicants
// @Produce text/event-stream
// @Param id path string true "Applicant ID"
// @Router /applicants/{id}/deadline/stream [get]
func (h *ApplicantHandler) DeadlineStream(c *gin.Context) {
	detail, err := h.applicants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if detail.ConvocationDeadline == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "applicant has no convocation deadline"))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.deadlines.Watch(c.Request.Context(), *detail.ConvocationDeadline, func(ev service.DeadlineEvaluation) {
		c.SSEvent("deadline", ev)
		c.Writer.Flush()
	})
}

func (h *ApplicantHandler) justified(c *gin.Context, fn func(ctx context.Context, id string, req service.JustifiedRequest, actor string) (*models.Applicant, error)) {
	var req service.JustifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	applicant, err := fn(c.Request.Context(), c.Param("id"), req, middleware.ActorValue(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}
