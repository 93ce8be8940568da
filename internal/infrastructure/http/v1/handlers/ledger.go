package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/documents"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// LedgerHandler provides generic HTTP handlers for one ledger kind. Request
// bodies decode straight into the ledger document; identity, version and
// attribution stay server-owned.
type LedgerHandler[D documents.Document] struct {
	*BaseHandler
	service *documents.Coordinator[D]
	newDoc  func() D
}

// NewLedgerHandler creates a ledger handler. newDoc returns an empty document
// with a fresh header.
func NewLedgerHandler[D documents.Document](base *BaseHandler, service *documents.Coordinator[D], newDoc func() D) *LedgerHandler[D] {
	return &LedgerHandler[D]{BaseHandler: base, service: service, newDoc: newDoc}
}

// bind decodes the body into a new document and restores the server-owned header fields.
func (h *LedgerHandler[D]) bind(c *gin.Context) (D, bool) {
	doc := h.newDoc()
	hdr := doc.GetHeader()
	base := hdr.BaseDocument

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot read request body"))
		return doc, false
	}
	body, err = normalizeDate(body)
	if err == nil {
		err = json.NewDecoder(bytes.NewReader(body)).Decode(doc)
	}
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return doc, false
	}

	version := hdr.Version
	hdr.BaseDocument = base
	hdr.Version = version
	return doc, true
}

// normalizeDate lets clients send the header date as a calendar day.
func normalizeDate(body []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	raw, ok := fields["date"]
	if !ok {
		return body, nil
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return body, nil
	}
	t, err := dto.ParseDate(s)
	if err != nil {
		return body, nil
	}
	fields["date"], _ = json.Marshal(t.Format(time.RFC3339))
	return json.Marshal(fields)
}

// List handles GET /{ledger}?from=&to=&contact_id=.
func (h *LedgerHandler[D]) List(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}
	filter := documents.ListFilter{ListFilter: base}
	if c.Query("orderBy") == "" {
		filter.OrderBy = "-date"
	}
	if filter.DateFrom, ok = h.QueryDate(c, "from"); !ok {
		return
	}
	if filter.DateTo, ok = h.QueryDate(c, "to"); !ok {
		return
	}
	if filter.ContactID, ok = h.QueryID(c, "contact_id"); !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result, func(d D) D { return d }))
}

// Get handles GET /{ledger}/:id.
func (h *LedgerHandler[D]) Get(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Get(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Create handles POST /{ledger}.
func (h *LedgerHandler[D]) Create(c *gin.Context) {
	doc, ok := h.bind(c)
	if !ok {
		return
	}

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// Update handles PUT /{ledger}/:id. The body carries the version it was read
// at; without one the stored version is used.
func (h *LedgerHandler[D]) Update(c *gin.Context) {
	ctx := c.Request.Context()

	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	doc, ok := h.bind(c)
	if !ok {
		return
	}

	hdr := doc.GetHeader()
	hdr.ID = docID
	if hdr.Version == 0 {
		stored, err := h.service.Get(ctx, docID)
		if err != nil {
			h.Error(c, err)
			return
		}
		hdr.Version = stored.GetVersion()
	}

	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Delete handles DELETE /{ledger}/:id.
func (h *LedgerHandler[D]) Delete(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
