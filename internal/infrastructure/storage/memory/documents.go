package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/opening"
	"stockledger/internal/domain/ledger"
)

type docRow[D any] interface {
	documents.Document
	Clone() D
}

type contactBound interface {
	GetContactID() *id.ID
}

// DocumentRepo stores the headers and lines of one ledger kind.
type DocumentRepo[D docRow[D]] struct {
	s    *Store
	kind ledger.Kind
	rows map[id.ID]D
}

func newDocumentRepo[D docRow[D]](s *Store, kind ledger.Kind) *DocumentRepo[D] {
	return &DocumentRepo[D]{s: s, kind: kind, rows: make(map[id.ID]D)}
}

func (r *DocumentRepo[D]) notFound(docID id.ID) error {
	return apperror.NewNotFound(r.kind.String(), docID.String())
}

func (r *DocumentRepo[D]) Create(ctx context.Context, doc D) error {
	return r.s.write(ctx, func() (func(), error) {
		key := doc.GetID()
		if _, ok := r.rows[key]; ok {
			return nil, apperror.NewDuplicate(r.kind.String(), "id", key.String())
		}
		if doc.GetVersion() == 0 {
			doc.GetHeader().SetVersion(1)
		}
		r.rows[key] = doc.Clone()
		return func() { delete(r.rows, key) }, nil
	})
}

func (r *DocumentRepo[D]) Update(ctx context.Context, doc D) error {
	return r.s.write(ctx, func() (func(), error) {
		key := doc.GetID()
		prev, ok := r.rows[key]
		if !ok {
			return nil, r.notFound(key)
		}
		if prev.GetVersion() != doc.GetVersion() {
			return nil, apperror.NewConcurrentModification(r.kind.String(), key.String())
		}
		doc.GetHeader().SetVersion(doc.GetVersion() + 1)
		r.rows[key] = doc.Clone()
		return func() { r.rows[key] = prev }, nil
	})
}

// SaveLines stores the document's line set. Headers and lines share one row
// here, so the stored copy is replaced as a whole.
func (r *DocumentRepo[D]) SaveLines(ctx context.Context, doc D) error {
	return r.s.write(ctx, func() (func(), error) {
		key := doc.GetID()
		prev, ok := r.rows[key]
		if !ok {
			return nil, r.notFound(key)
		}
		r.rows[key] = doc.Clone()
		return func() { r.rows[key] = prev }, nil
	})
}

func (r *DocumentRepo[D]) Delete(ctx context.Context, docID id.ID) error {
	return r.s.write(ctx, func() (func(), error) {
		prev, ok := r.rows[docID]
		if !ok {
			return nil, r.notFound(docID)
		}
		delete(r.rows, docID)
		return func() { r.rows[docID] = prev }, nil
	})
}

func (r *DocumentRepo[D]) GetByID(_ context.Context, docID id.ID) (D, error) {
	var (
		out D
		ok  bool
	)
	r.s.read(func() {
		out, ok = r.rows[docID]
		if ok {
			out = out.Clone()
		}
	})
	if !ok {
		return out, r.notFound(docID)
	}
	return out, nil
}

// GetForUpdate reads the document. The transaction lock already serializes writers.
func (r *DocumentRepo[D]) GetForUpdate(ctx context.Context, docID id.ID) (D, error) {
	return r.GetByID(ctx, docID)
}

func (r *DocumentRepo[D]) List(_ context.Context, filter documents.ListFilter) (domain.ListResult[D], error) {
	var all []D
	r.s.read(func() {
		for key, doc := range r.rows {
			if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, key) {
				continue
			}
			if !filter.InRange(doc.GetDate()) {
				continue
			}
			if filter.ContactID != nil {
				c, ok := any(doc).(contactBound)
				if !ok || c.GetContactID() == nil || *c.GetContactID() != *filter.ContactID {
					continue
				}
			}
			if filter.Search != "" && !matchDocument(doc, filter.Search) {
				continue
			}
			all = append(all, doc.Clone())
		}
	})
	slices.SortFunc(all, func(a, b D) int {
		if c := b.GetDate().Compare(a.GetDate()); c != 0 {
			return c
		}
		return compareIDs(b.GetID(), a.GetID())
	})
	if filter.OrderBy == "date" {
		slices.Reverse(all)
	}
	return page(all, filter.Limit, filter.Offset), nil
}

func matchDocument(doc documents.Document, search string) bool {
	q := strings.ToLower(search)
	if ref, ok := doc.(documents.Referenced); ok && strings.Contains(strings.ToLower(ref.GetReference()), q) {
		return true
	}
	return strings.Contains(strings.ToLower(doc.GetHeader().Remarks), q)
}

// ReferenceTaken reports whether another document of this kind uses reference.
func (r *DocumentRepo[D]) ReferenceTaken(_ context.Context, reference string, exclude id.ID) (bool, error) {
	taken := false
	r.s.read(func() {
		for key, doc := range r.rows {
			ref, ok := any(doc).(documents.Referenced)
			if ok && key != exclude && strings.EqualFold(ref.GetReference(), reference) {
				taken = true
				return
			}
		}
	})
	return taken, nil
}

// each calls fn for every stored document. Callers hold the read lock.
func (r *DocumentRepo[D]) each(fn func(D)) {
	for _, doc := range r.rows {
		fn(doc)
	}
}

// OpeningRepo adds the per-year uniqueness lookup.
type OpeningRepo struct {
	*DocumentRepo[*opening.Opening]
}

func (r *OpeningRepo) ExistingKeys(_ context.Context, fy int, keys []ledger.StockKey, exclude id.ID) ([]ledger.StockKey, error) {
	taken := make(map[ledger.StockKey]bool)
	r.s.read(func() {
		r.each(func(o *opening.Opening) {
			if o.ID == exclude || o.FinancialYear() != fy {
				return
			}
			for _, k := range o.Keys() {
				taken[k] = true
			}
		})
	})
	var out []ledger.StockKey
	for _, k := range keys {
		if taken[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

// IssueRepo adds returned-quantity bookkeeping to delivery issues.
type IssueRepo struct {
	*DocumentRepo[*delivery.Issue]
}

// lineIndex finds the stored issue and line position of lineID. Callers hold a lock.
func (r *IssueRepo) lineIndex(lineID id.ID) (*delivery.Issue, int) {
	for _, doc := range r.rows {
		for n, l := range doc.Lines {
			if l.LineID == lineID {
				return doc, n
			}
		}
	}
	return nil, -1
}

func pendingLine(doc *delivery.Issue, l delivery.IssueLine) delivery.PendingLine {
	return delivery.PendingLine{
		IssueID:     doc.ID,
		ReferenceNo: doc.ReferenceNo,
		Date:        doc.Date,
		ContactID:   doc.ContactID,
		ToPerson:    doc.ToPerson,
		LineID:      l.LineID,
		LineNo:      l.LineNo,
		ItemID:      l.ItemID,
		WarehouseID: l.WarehouseID,
		Issued:      l.Quantity,
		Returned:    l.ReturnedQuantity,
	}
}

// LockLines returns the requested lines that exist, in the order asked.
func (r *IssueRepo) LockLines(_ context.Context, lineIDs []id.ID) ([]delivery.PendingLine, error) {
	var out []delivery.PendingLine
	r.s.read(func() {
		for _, lineID := range lineIDs {
			if doc, n := r.lineIndex(lineID); doc != nil {
				out = append(out, pendingLine(doc, doc.Lines[n]))
			}
		}
	})
	return out, nil
}

// AddReturned moves the returned quantity of a line by delta, keeping it
// between zero and the issued quantity.
func (r *IssueRepo) AddReturned(ctx context.Context, lineID id.ID, delta types.Quantity) error {
	return r.s.write(ctx, func() (func(), error) {
		doc, n := r.lineIndex(lineID)
		if doc == nil {
			return nil, apperror.NewNotFound("issue line", lineID.String())
		}
		line := &doc.Lines[n]
		next := line.ReturnedQuantity + delta
		if next.IsNegative() || next > line.Quantity {
			return nil, fmt.Errorf("returned quantity %s out of range for line %s", next, lineID)
		}
		prev := line.ReturnedQuantity
		line.ReturnedQuantity = next
		return func() { doc.Lines[n].ReturnedQuantity = prev }, nil
	})
}

func (r *IssueRepo) FindPending(_ context.Context, filter delivery.PendingFilter) ([]delivery.PendingLine, error) {
	out := []delivery.PendingLine{}
	r.s.read(func() {
		r.each(func(doc *delivery.Issue) {
			for _, l := range doc.Lines {
				p := pendingLine(doc, l)
				if p.Pending().IsPositive() && filter.Matches(p) {
					out = append(out, p)
				}
			}
		})
	})
	slices.SortFunc(out, func(a, b delivery.PendingLine) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := compareIDs(a.IssueID, b.IssueID); c != 0 {
			return c
		}
		return a.LineNo - b.LineNo
	})
	return out, nil
}

// ReturnRepo stores delivery returns.
type ReturnRepo struct {
	*DocumentRepo[*delivery.Return]
}
