package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/registers/stock"
)

// StockHandler serves balances and stock ledgers computed from the movement register.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// BalanceResponse is the stock of one item in one warehouse.
type BalanceResponse struct {
	ItemID      id.ID          `json:"itemId"`
	WarehouseID id.ID          `json:"warehouseId"`
	AsOf        string         `json:"asOf,omitempty"`
	Quantity    types.Quantity `json:"quantity"`
}

// LedgerResponse is the running stock ledger of one item in one warehouse.
type LedgerResponse struct {
	ItemID      id.ID               `json:"itemId"`
	WarehouseID id.ID               `json:"warehouseId"`
	Entries     []stock.LedgerEntry `json:"entries"`
}

// GetStock handles GET /stock?item_id=&warehouse_id=&as_of=
func (h *StockHandler) GetStock(c *gin.Context) {
	itemID, ok := h.RequiredQueryID(c, "item_id")
	if !ok {
		return
	}
	warehouseID, ok := h.RequiredQueryID(c, "warehouse_id")
	if !ok {
		return
	}
	asOf, ok := h.QueryDate(c, "as_of")
	if !ok {
		return
	}

	qty, err := h.service.ComputeStock(c.Request.Context(), itemID, warehouseID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := BalanceResponse{ItemID: itemID, WarehouseID: warehouseID, Quantity: qty}
	if asOf != nil {
		resp.AsOf = asOf.Format("2006-01-02")
	}
	h.OK(c, resp)
}

// GetLedger handles GET /stock/ledger?item_id=&warehouse_id=
func (h *StockHandler) GetLedger(c *gin.Context) {
	itemID, ok := h.RequiredQueryID(c, "item_id")
	if !ok {
		return
	}
	warehouseID, ok := h.RequiredQueryID(c, "warehouse_id")
	if !ok {
		return
	}

	entries, err := h.service.ComputeStockLedger(c.Request.Context(), itemID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, LedgerResponse{ItemID: itemID, WarehouseID: warehouseID, Entries: entries})
}

// GetItemStock handles GET /stock/items/:id?as_of=
func (h *StockHandler) GetItemStock(c *gin.Context) {
	itemID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.QueryDate(c, "as_of")
	if !ok {
		return
	}

	result, err := h.service.ComputeItemStock(c.Request.Context(), itemID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
