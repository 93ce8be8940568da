package delivery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/contact"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/period"
	"stockledger/internal/infrastructure/storage/memory"
)

type desk struct {
	ctx     context.Context
	store   *memory.Store
	rec     *delivery.Reconciler
	issues  *delivery.IssueService
	returns *delivery.ReturnService
	item    *item.Item
	wh      id.ID
	contact id.ID
}

func newDesk(t *testing.T) *desk {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	g := group.NewGroup("TL", "Tools")
	require.NoError(t, s.Groups.Create(ctx, g))
	it := item.NewItem("DR", "Drill", "pcs", g.ID)
	it.Barcodes = []string{"4006381333931"}
	require.NoError(t, s.Items.Create(ctx, it))
	wh := warehouse.NewWarehouse("ST", "Store")
	require.NoError(t, s.Warehouses.Create(ctx, wh))
	c := contact.NewContact("Site crew", contact.TypeCustomer)
	require.NoError(t, s.Contacts.Create(ctx, c))

	p, err := period.New(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, s.Periods.Save(ctx, p))

	deps := s.Deps()
	issues := delivery.NewIssueService(s.Issues, deps, s.Numbers, numerator.DefaultOptions())
	returns := delivery.NewReturnService(s.Returns, s.Issues, deps)
	return &desk{
		ctx:     ctx,
		store:   s,
		rec:     delivery.NewReconciler(issues, returns, s.Issues, s.Items),
		issues:  issues,
		returns: returns,
		item:    it,
		wh:      wh.ID,
		contact: c.ID,
	}
}

func (d *desk) issue(t *testing.T, qty int64) *delivery.Issue {
	t.Helper()
	doc := delivery.NewIssue(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), d.contact)
	doc.ToPerson = "R. Iyer"
	doc.AddLine(d.item.ID, d.wh, types.Units(qty))
	require.NoError(t, d.rec.Issue(d.ctx, doc))
	return doc
}

func (d *desk) pending(t *testing.T) []delivery.PendingLine {
	t.Helper()
	lines, err := d.rec.FindPending(d.ctx, delivery.PendingFilter{ContactID: &d.contact})
	require.NoError(t, err)
	return lines
}

func TestReturn_FullThenOverReturn(t *testing.T) {
	d := newDesk(t)
	doc := d.issue(t, 10)
	assert.Equal(t, "DLV-2025-00001", doc.ReferenceNo)
	lineID := doc.Lines[0].LineID

	ret, err := d.rec.ReturnLine(d.ctx, lineID, types.Units(10), d.wh, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, d.item.ID, ret.Lines[0].ItemID)
	assert.Empty(t, d.pending(t))

	_, err = d.rec.ReturnLine(d.ctx, lineID, types.Units(1), d.wh, time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, apperror.IsOverReturn(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeOverReturn, appErr.Code)
	assert.Equal(t, "lines[0].quantity", appErr.Fields[0].Field)
}

func TestReturn_SplitAcrossLinesReportedOnce(t *testing.T) {
	d := newDesk(t)
	doc := d.issue(t, 5)
	lineID := doc.Lines[0].LineID

	ret := delivery.NewReturn(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
	ret.AddLine(lineID, d.wh, types.Units(3))
	ret.AddLine(lineID, d.wh, types.Units(3))
	err := d.rec.ReturnAgainst(d.ctx, ret)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, apperror.CodeOverReturn, appErr.Fields[0].Code)
	require.Len(t, d.pending(t), 1)
	assert.Equal(t, types.Units(5), d.pending(t)[0].Pending())
}

func TestReturn_ConcurrentReturnsNeverExceedIssue(t *testing.T) {
	d := newDesk(t)
	doc := d.issue(t, 10)
	lineID := doc.Lines[0].LineID
	date := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	const clerks = 20
	errs := make([]error, clerks)
	var wg sync.WaitGroup
	for i := range clerks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = d.rec.ReturnLine(d.ctx, lineID, types.Units(1), d.wh, date)
		}()
	}
	wg.Wait()

	var accepted int
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.True(t, apperror.IsOverReturn(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 10, accepted)
	assert.Empty(t, d.pending(t))

	stored, err := d.store.Issues.GetByID(d.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Units(10), stored.Lines[0].ReturnedQuantity)
}

func TestReturn_UnknownIssueLine(t *testing.T) {
	d := newDesk(t)

	_, err := d.rec.ReturnLine(d.ctx, id.New(), types.Units(1), d.wh, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "lines[0].issueLineId", appErr.Fields[0].Field)
	assert.Equal(t, apperror.CodeNotFound, appErr.Fields[0].Code)
}

func TestReturn_EditAndDeleteMoveCounters(t *testing.T) {
	d := newDesk(t)
	doc := d.issue(t, 10)
	lineID := doc.Lines[0].LineID

	ret, err := d.rec.ReturnLine(d.ctx, lineID, types.Units(4), d.wh, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, types.Units(6), d.pending(t)[0].Pending())

	// its own previous quantity is available to an edit
	ret.Lines[0].Quantity = types.Units(10)
	require.NoError(t, d.returns.Update(d.ctx, ret))
	assert.Empty(t, d.pending(t))

	require.NoError(t, d.returns.Delete(d.ctx, ret.ID))
	require.Len(t, d.pending(t), 1)
	assert.Equal(t, types.Units(10), d.pending(t)[0].Pending())
}

func TestIssue_ProtectedOnceReturned(t *testing.T) {
	d := newDesk(t)
	doc := d.issue(t, 3)

	_, err := d.rec.ReturnLine(d.ctx, doc.Lines[0].LineID, types.Units(1), d.wh, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	edit, err := d.issues.Get(d.ctx, doc.ID)
	require.NoError(t, err)
	edit.Lines[0].Quantity = types.Units(5)
	assert.True(t, apperror.IsReferentialIntegrity(d.issues.Update(d.ctx, edit)))
	assert.True(t, apperror.IsReferentialIntegrity(d.issues.Delete(d.ctx, doc.ID)))
}

func TestIssue_ReturnedQuantityIsServerOwned(t *testing.T) {
	d := newDesk(t)
	doc := delivery.NewIssue(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), d.contact)
	doc.AddLine(d.item.ID, d.wh, types.Units(4))
	doc.Lines[0].ReturnedQuantity = types.Units(4)
	require.NoError(t, d.rec.Issue(d.ctx, doc))

	require.Len(t, d.pending(t), 1)
	assert.Equal(t, types.Units(4), d.pending(t)[0].Pending())
}

func TestFindPendingByBarcode(t *testing.T) {
	d := newDesk(t)
	d.issue(t, 2)

	lines, err := d.rec.FindPendingByBarcode(d.ctx, "4006381333931", nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "R. Iyer", lines[0].ToPerson)

	_, err = d.rec.FindPendingByBarcode(d.ctx, "0000", nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestIssue_DoesNotMoveStock(t *testing.T) {
	d := newDesk(t)
	doc := d.issue(t, 2)

	moves, err := d.store.Stock.GetMovementsByRecorder(d.ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, moves)
}
