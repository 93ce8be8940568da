package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/audit"
	"stockledger/internal/infrastructure/http/v1/dto"
)

const maxAuditEntries = 500

// AuditHandler exposes the change history of catalog entries and ledger documents.
type AuditHandler struct {
	*BaseHandler
	reader audit.Reader
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, reader audit.Reader) *AuditHandler {
	return &AuditHandler{BaseHandler: base, reader: reader}
}

// History handles GET /audit/:entity/:id?limit=
func (h *AuditHandler) History(c *gin.Context) {
	entityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 50)
	if limit <= 0 || limit > maxAuditEntries {
		limit = maxAuditEntries
	}

	entries, err := h.reader.History(c.Request.Context(), c.Param("entity"), entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	h.OK(c, dto.ItemsResponse[audit.Entry]{Items: entries})
}
