package documents_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/documents/inward"
	"stockledger/internal/domain/documents/opening"
	"stockledger/internal/domain/documents/outward"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	item  id.ID
	wh    id.ID

	openings *opening.Service
	inwards  *inward.Service
	outwards *outward.Service
	stock    *stock.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-1", Roles: []string{appctx.RoleEditor}})
	s := memory.New()

	g := group.NewGroup("RM", "Raw material")
	require.NoError(t, s.Groups.Create(ctx, g))
	it := item.NewItem("BOLT", "Bolt", "pcs", g.ID)
	require.NoError(t, s.Items.Create(ctx, it))
	wh := warehouse.NewWarehouse("MAIN", "Main")
	require.NoError(t, s.Warehouses.Create(ctx, wh))

	p, err := period.New(day(2024, time.April, 1), day(2025, time.March, 31))
	require.NoError(t, err)
	require.NoError(t, s.Periods.Save(ctx, p))

	deps := s.Deps()
	return &fixture{
		ctx:      ctx,
		store:    s,
		item:     it.ID,
		wh:       wh.ID,
		openings: opening.NewService(s.Openings, deps),
		inwards:  inward.NewService(s.Inwards, deps),
		outwards: outward.NewService(s.Outwards, deps),
		stock:    stock.NewService(s.Stock, nil),
	}
}

func (f *fixture) balance(t *testing.T, asOf *time.Time) types.Quantity {
	t.Helper()
	qty, err := f.stock.ComputeStock(f.ctx, f.item, f.wh, asOf)
	require.NoError(t, err)
	return qty
}

func (f *fixture) inward(date time.Time, qty int64) *inward.Inward {
	d := inward.New(date, inward.TypePurchase, "INV-"+date.Format("0102"))
	d.AddLine(f.item, f.wh, types.Units(qty))
	return d
}

func fieldCodes(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	out := make(map[string]string, len(appErr.Fields))
	for _, fe := range appErr.Fields {
		out[fe.Field] = fe.Code
	}
	return out
}

func TestLedgerScenario_OpeningInwardOutward(t *testing.T) {
	f := newFixture(t)

	op := opening.New(day(2024, time.April, 1))
	op.AddLine(f.item, f.wh, types.Units(100))
	require.NoError(t, f.openings.Create(f.ctx, op))

	require.NoError(t, f.inwards.Create(f.ctx, f.inward(day(2024, time.May, 10), 50)))

	out := outward.New(day(2024, time.June, 1), outward.TypeSale, "S-1")
	out.AddLine(f.item, f.wh, types.Units(30))
	require.NoError(t, f.outwards.Create(f.ctx, out))

	assert.Equal(t, types.Units(120), f.balance(t, nil))
	asOf := day(2024, time.May, 15)
	assert.Equal(t, types.Units(150), f.balance(t, &asOf))

	entries, err := f.stock.ComputeStockLedger(f.ctx, f.item, f.wh)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Opening Stock", entries[0].Label)
	assert.Equal(t, types.Units(120), entries[2].Balance)
}

func TestCreate_OutOfPeriodPersistsNothing(t *testing.T) {
	f := newFixture(t)

	err := f.inwards.Create(f.ctx, f.inward(day(2024, time.March, 31), 10))

	require.Error(t, err)
	assert.True(t, apperror.IsOutOfPeriod(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeOutOfPeriod, appErr.Code)

	res, err := f.inwards.List(f.ctx, documents.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.True(t, f.balance(t, nil).IsZero())
	assert.Empty(t, f.store.Outbox.Events())
}

func TestCreate_AggregatesFieldErrors(t *testing.T) {
	f := newFixture(t)

	d := inward.New(day(2023, time.December, 1), inward.TypePurchase, "INV-9")
	d.AddLine(id.New(), f.wh, types.Units(5))
	d.AddLine(f.item, f.wh, 0)

	err := f.inwards.Create(f.ctx, d)

	codes := fieldCodes(t, err)
	assert.Equal(t, apperror.CodeOutOfPeriod, codes["date"])
	assert.Equal(t, apperror.CodeNotFound, codes["lines[0].itemId"])
	assert.Equal(t, apperror.CodeInvalid, codes["lines[1].quantity"])
	assert.True(t, apperror.IsValidation(err))
}

func TestCreate_NoActivePeriod(t *testing.T) {
	f := newFixture(t)
	f.store = memory.New()
	svc := inward.NewService(f.store.Inwards, f.store.Deps())

	err := svc.Create(f.ctx, f.inward(day(2024, time.May, 1), 1))

	assert.True(t, apperror.IsOutOfPeriod(err))
}

func TestUpdate_RewritesMovementsAndLineIDs(t *testing.T) {
	f := newFixture(t)
	d := f.inward(day(2024, time.May, 10), 50)
	require.NoError(t, f.inwards.Create(f.ctx, d))
	firstLine := d.Lines[0].LineID

	edit, err := f.inwards.Get(f.ctx, d.ID)
	require.NoError(t, err)
	edit.Lines[0].Quantity = types.Units(20)
	edit.AddLine(f.item, f.wh, types.Units(5))
	require.NoError(t, f.inwards.Update(f.ctx, edit))

	assert.Equal(t, types.Units(25), f.balance(t, nil))
	assert.Equal(t, 2, edit.Version)
	assert.NotEqual(t, firstLine, edit.Lines[0].LineID)
	assert.Equal(t, 2, edit.Lines[1].LineNo)

	moves, err := f.store.Stock.GetMovementsByRecorder(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, moves, 2)
}

func TestUpdate_VersionConflict(t *testing.T) {
	f := newFixture(t)
	d := f.inward(day(2024, time.May, 10), 50)
	require.NoError(t, f.inwards.Create(f.ctx, d))

	a, err := f.inwards.Get(f.ctx, d.ID)
	require.NoError(t, err)
	b, err := f.inwards.Get(f.ctx, d.ID)
	require.NoError(t, err)

	a.Remarks = "first"
	require.NoError(t, f.inwards.Update(f.ctx, a))

	b.Remarks = "second"
	err = f.inwards.Update(f.ctx, b)
	assert.True(t, apperror.IsConcurrentModification(err))

	stored, err := f.inwards.Get(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Remarks)
}

func TestUpdate_MovingOutOfPeriodDateIsRefused(t *testing.T) {
	f := newFixture(t)
	d := f.inward(day(2024, time.May, 10), 50)
	require.NoError(t, f.inwards.Create(f.ctx, d))

	p, err := period.New(day(2024, time.June, 1), day(2025, time.March, 31))
	require.NoError(t, err)
	require.NoError(t, f.store.Periods.Save(f.ctx, p))

	edit, err := f.inwards.Get(f.ctx, d.ID)
	require.NoError(t, err)
	edit.Date = day(2024, time.July, 1)
	err = f.inwards.Update(f.ctx, edit)
	assert.True(t, apperror.IsOutOfPeriod(err), "stored date lies in a closed range")

	err = f.inwards.Delete(f.ctx, d.ID)
	assert.True(t, apperror.IsOutOfPeriod(err))
	assert.Equal(t, types.Units(50), f.balance(t, nil))
}

func TestDelete_RemovesMovements(t *testing.T) {
	f := newFixture(t)
	d := f.inward(day(2024, time.May, 10), 50)
	require.NoError(t, f.inwards.Create(f.ctx, d))

	require.NoError(t, f.inwards.Delete(f.ctx, d.ID))

	assert.True(t, f.balance(t, nil).IsZero())
	_, err := f.inwards.Get(f.ctx, d.ID)
	assert.True(t, apperror.IsNotFound(err))

	err = f.inwards.Delete(f.ctx, d.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestContention_RetriedThenTransient(t *testing.T) {
	f := newFixture(t)

	f.store.InjectContention(2)
	require.NoError(t, f.inwards.Create(f.ctx, f.inward(day(2024, time.May, 10), 5)))
	assert.Equal(t, types.Units(5), f.balance(t, nil))

	f.store.InjectContention(3)
	err := f.inwards.Create(f.ctx, f.inward(day(2024, time.May, 11), 7))
	assert.True(t, apperror.IsTransient(err))
	assert.Equal(t, types.Units(5), f.balance(t, nil))
}

func TestCommit_RecordsEventAndAudit(t *testing.T) {
	f := newFixture(t)
	d := f.inward(day(2024, time.May, 10), 50)
	require.NoError(t, f.inwards.Create(f.ctx, d))

	events := f.store.Outbox.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ledger.KindInward, events[0].Kind)
	assert.Equal(t, documents.OpCreate, events[0].Op)
	assert.Equal(t, []ledger.StockKey{{ItemID: f.item, WarehouseID: f.wh}}, events[0].Keys)
	assert.Equal(t, "u-1", events[0].UserID)

	history, err := f.store.Audit.History(f.ctx, string(ledger.KindInward), d.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "u-1", d.CreatedBy)
}
