package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/bom"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ItemHandler adds item lookups to the generic catalog routes.
type ItemHandler struct {
	*CatalogHandler[*item.Item, dto.ItemRequest]
	items *item.Service
}

// NewItemHandler creates an item handler.
func NewItemHandler(base *BaseHandler, items *item.Service) *ItemHandler {
	return &ItemHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*item.Item, dto.ItemRequest]{
			Service:    items,
			EntityName: "item",
			MapCreate:  dto.ItemRequest.ToEntity,
			MapUpdate:  dto.ItemRequest.ApplyTo,
		}),
		items: items,
	}
}

// Search handles GET /items/search?q=&limit=.
// It matches name, code, aliases and part numbers.
func (h *ItemHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		h.Error(c, apperror.NewFieldError("q", apperror.CodeRequired, "q is required"))
		return
	}

	found, err := h.items.Search(c.Request.Context(), q, h.ParseIntQuery(c, "limit", 20))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ItemsResponse[*item.Item]{Items: found})
}

// ByBarcode handles GET /items/barcode/:code.
func (h *ItemHandler) ByBarcode(c *gin.Context) {
	it, err := h.items.GetByBarcode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// BOMHandler adds explosion to the generic catalog routes.
type BOMHandler struct {
	*CatalogHandler[*bom.BillOfMaterial, dto.BOMRequest]
	boms *bom.Service
}

// NewBOMHandler creates a BOM handler.
func NewBOMHandler(base *BaseHandler, boms *bom.Service) *BOMHandler {
	return &BOMHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*bom.BillOfMaterial, dto.BOMRequest]{
			Service:    boms,
			EntityName: "bom",
			MapCreate:  dto.BOMRequest.ToEntity,
			MapUpdate:  dto.BOMRequest.ApplyTo,
		}),
		boms: boms,
	}
}

// ExplodeResponse lists component requirements of a production run.
type ExplodeResponse struct {
	BOMID        string            `json:"bomId"`
	Quantity     types.Quantity    `json:"quantity"`
	Requirements []bom.Requirement `json:"requirements"`
}

// Explode handles GET /boms/:id/explode?quantity=.
func (h *BOMHandler) Explode(c *gin.Context) {
	bomID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	qty := types.Units(1)
	if raw := c.Query("quantity"); raw != "" {
		parsed, err := types.ParseQuantity(raw)
		if err != nil {
			h.Error(c, apperror.NewFieldError("quantity", apperror.CodeInvalid, "invalid quantity"))
			return
		}
		qty = parsed
	}

	reqs, err := h.boms.Explode(c.Request.Context(), bomID, qty)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, ExplodeResponse{BOMID: bomID.String(), Quantity: qty, Requirements: reqs})
}
