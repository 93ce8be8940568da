package memory

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents"
)

func documentsFilter(from, to *time.Time, contact *id.ID) documents.ListFilter {
	return documents.ListFilter{DateFrom: from, DateTo: to, ContactID: contact}
}
