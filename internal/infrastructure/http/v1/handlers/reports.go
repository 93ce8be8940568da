package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reports"
)

// ReportsHandler serves aggregate reports over the movement register.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// Dashboard handles GET /reports/dashboard.
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	out, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// Turnover handles GET /reports/turnover?from=&to=&kind=&item_id=&warehouse_id=
func (h *ReportsHandler) Turnover(c *gin.Context) {
	var filter reports.TurnoverFilter

	from, ok := h.QueryDate(c, "from")
	if !ok {
		return
	}
	to, ok := h.QueryDate(c, "to")
	if !ok {
		return
	}
	if from != nil {
		filter.From = *from
	}
	if to != nil {
		filter.To = *to
	}
	if k := c.Query("kind"); k != "" {
		kind := ledger.Kind(k)
		filter.Kind = &kind
	}
	if filter.ItemID, ok = h.QueryID(c, "item_id"); !ok {
		return
	}
	if filter.WarehouseID, ok = h.QueryID(c, "warehouse_id"); !ok {
		return
	}

	out, err := h.service.Turnover(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// StockSummary handles GET /reports/stock-summary?as_of=
func (h *ReportsHandler) StockSummary(c *gin.Context) {
	asOf, ok := h.QueryDate(c, "as_of")
	if !ok {
		return
	}

	out, err := h.service.StockSummary(c.Request.Context(), asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}
