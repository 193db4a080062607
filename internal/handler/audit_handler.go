package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/educmun/creche-api/internal/service"
	"github.com/educmun/creche-api/pkg/response"
)

// AuditHandler exposes the append-only history.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit entries
// @Tags Audit
// @Produce json
// @Param applicantId query string false "Scope to one applicant"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	entries, err := h.audit.List(c.Request.Context(), c.Query("applicantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
