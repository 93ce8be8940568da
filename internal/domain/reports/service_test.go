package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/reports"
	"stockledger/internal/infrastructure/storage/memory"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func record(t *testing.T, s *memory.Store, kind ledger.Kind, rt entity.RecordType, date time.Time, itemID, whID id.ID, qty int64) {
	t.Helper()
	doc := id.New()
	m := entity.NewStockMovement(doc, string(kind), date, rt, id.New(), 1, itemID, whID, types.Units(qty), "")
	require.NoError(t, s.Stock.ReplaceMovements(context.Background(), doc, []entity.StockMovement{m}))
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	bolt, nut, wh := id.New(), id.New(), id.New()

	record(t, s, ledger.KindInward, entity.RecordTypeReceipt, day(time.March, 20), bolt, wh, 7)
	record(t, s, ledger.KindInward, entity.RecordTypeReceipt, day(time.May, 1), bolt, wh, 20)
	record(t, s, ledger.KindOutward, entity.RecordTypeExpense, day(time.May, 2), bolt, wh, 5)
	record(t, s, ledger.KindProduction, entity.RecordTypeReceipt, day(time.May, 3), nut, wh, 4)
	record(t, s, ledger.KindProduction, entity.RecordTypeExpense, day(time.May, 3), bolt, wh, 2)

	svc := reports.NewService(s.Reports, s.Periods)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Nil(t, dash.Period)
	assert.True(t, dash.PeriodTotals.Inward.IsZero())
	assert.Equal(t, types.Units(24), dash.TotalStock)

	p, err := period.New(day(time.April, 1), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, s.Periods.Save(ctx, p))

	dash, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	require.NotNil(t, dash.Period)
	assert.Equal(t, reports.Totals{
		Inward:   types.Units(20),
		Outward:  types.Units(5),
		Produced: types.Units(4),
	}, dash.PeriodTotals)
}

func TestTurnover(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	bolt, a, b := id.New(), id.New(), id.New()
	record(t, s, ledger.KindTransfer, entity.RecordTypeExpense, day(time.May, 1), bolt, a, 3)
	record(t, s, ledger.KindTransfer, entity.RecordTypeReceipt, day(time.May, 1), bolt, b, 3)
	record(t, s, ledger.KindInward, entity.RecordTypeReceipt, day(time.May, 9), bolt, a, 10)
	record(t, s, ledger.KindInward, entity.RecordTypeReceipt, day(time.June, 9), bolt, a, 99)
	svc := reports.NewService(s.Reports, s.Periods)

	got, err := svc.Turnover(ctx, reports.TurnoverFilter{From: day(time.May, 1), To: day(time.May, 31)})
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, types.Units(13), got.TotalReceipt)
	assert.Equal(t, types.Units(3), got.TotalExpense)

	kind := ledger.KindInward
	got, err = svc.Turnover(ctx, reports.TurnoverFilter{From: day(time.May, 1), To: day(time.May, 31), Kind: &kind, WarehouseID: &a})
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, types.Units(10), got.Rows[0].Net())
}

func TestTurnover_ValidatesFilter(t *testing.T) {
	svc := reports.NewService(memory.New().Reports, period.Fixed{})
	bogus := ledger.Kind("stocktake")

	_, err := svc.Turnover(context.Background(), reports.TurnoverFilter{
		From: day(time.June, 1),
		To:   day(time.May, 1),
		Kind: &bogus,
	})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	fields := map[string]string{}
	for _, f := range appErr.Fields {
		fields[f.Field] = f.Code
	}
	assert.Equal(t, apperror.CodeInvalid, fields["to"])
	assert.Equal(t, apperror.CodeInvalid, fields["kind"])
}

func TestStockSummary_SkipsZeroRows(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	bolt, nut, wh := id.New(), id.New(), id.New()
	record(t, s, ledger.KindInward, entity.RecordTypeReceipt, day(time.May, 1), bolt, wh, 4)
	record(t, s, ledger.KindOutward, entity.RecordTypeExpense, day(time.May, 2), bolt, wh, 4)
	record(t, s, ledger.KindInward, entity.RecordTypeReceipt, day(time.May, 3), nut, wh, 6)

	sum, err := reports.NewService(s.Reports, s.Periods).StockSummary(ctx, nil)
	require.NoError(t, err)
	require.Len(t, sum.Rows, 1)
	assert.Equal(t, nut, sum.Rows[0].ItemID)
	assert.Equal(t, types.Units(6), sum.Total)

	asOf := day(time.May, 1)
	sum, err = reports.NewService(s.Reports, s.Periods).StockSummary(ctx, &asOf)
	require.NoError(t, err)
	require.Len(t, sum.Rows, 1)
	assert.Equal(t, bolt, sum.Rows[0].ItemID)
}
