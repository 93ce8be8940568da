package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// DeliveryHandler serves the outstanding delivery issue lines and single-line returns.
type DeliveryHandler struct {
	*BaseHandler
	reconciler *delivery.Reconciler
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(base *BaseHandler, reconciler *delivery.Reconciler) *DeliveryHandler {
	return &DeliveryHandler{BaseHandler: base, reconciler: reconciler}
}

// PendingResponse is an issue line with its outstanding quantity.
type PendingResponse struct {
	delivery.PendingLine
	PendingQuantity types.Quantity `json:"pendingQuantity"`
}

// ReturnLineRequest returns part of one issue line.
type ReturnLineRequest struct {
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	WarehouseID id.ID          `json:"warehouseId" binding:"required"`
	Date        string         `json:"date"`
}

func pendingResponse(lines []delivery.PendingLine) dto.ItemsResponse[PendingResponse] {
	out := make([]PendingResponse, len(lines))
	for i, l := range lines {
		out[i] = PendingResponse{PendingLine: l, PendingQuantity: l.Pending()}
	}
	return dto.ItemsResponse[PendingResponse]{Items: out}
}

// Pending handles GET /delivery/pending?contact_id=&item_id=&to_person=
func (h *DeliveryHandler) Pending(c *gin.Context) {
	filter := delivery.PendingFilter{ToPerson: c.Query("to_person")}

	var ok bool
	if filter.ContactID, ok = h.QueryID(c, "contact_id"); !ok {
		return
	}
	if filter.ItemID, ok = h.QueryID(c, "item_id"); !ok {
		return
	}

	lines, err := h.reconciler.FindPending(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, pendingResponse(lines))
}

// PendingByBarcode handles GET /delivery/pending/barcode/:code?contact_id=
func (h *DeliveryHandler) PendingByBarcode(c *gin.Context) {
	contactID, ok := h.QueryID(c, "contact_id")
	if !ok {
		return
	}

	lines, err := h.reconciler.FindPendingByBarcode(c.Request.Context(), c.Param("code"), contactID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, pendingResponse(lines))
}

// ReturnLine handles POST /delivery/pending/:lineId/return. The return is
// dated today unless the body names a date.
func (h *DeliveryHandler) ReturnLine(c *gin.Context) {
	lineID, ok := h.PathID(c, "lineId")
	if !ok {
		return
	}
	var req ReturnLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		d, err := dto.ParseDate(req.Date)
		if err != nil {
			h.Error(c, apperror.NewFieldError("date", apperror.CodeInvalid, "expected a date like 2006-01-02"))
			return
		}
		date = d
	}

	ret, err := h.reconciler.ReturnLine(c.Request.Context(), lineID, req.Quantity, req.WarehouseID, date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, ret)
}
