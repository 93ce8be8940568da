package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/period"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// PeriodHandler reads and replaces the active accounting period.
type PeriodHandler struct {
	*BaseHandler
	service *period.Service
}

// NewPeriodHandler creates a new period handler.
func NewPeriodHandler(base *BaseHandler, service *period.Service) *PeriodHandler {
	return &PeriodHandler{BaseHandler: base, service: service}
}

// PeriodResponse wraps the active period; Period is null when none is set.
type PeriodResponse struct {
	Period *period.Period `json:"period"`
}

// Get handles GET /period.
func (h *PeriodHandler) Get(c *gin.Context) {
	p, err := h.service.Active(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, PeriodResponse{Period: p})
}

// Set handles PUT /period.
func (h *PeriodHandler) Set(c *gin.Context) {
	var req dto.SetPeriodRequest
	if !h.BindJSON(c, &req) {
		return
	}
	start, end, err := req.Parse()
	if err != nil {
		h.Error(c, apperror.NewValidation("dates must look like 2006-01-02").WithDetail("error", err.Error()))
		return
	}

	p, err := h.service.SetActive(c.Request.Context(), start, end)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, PeriodResponse{Period: p})
}
