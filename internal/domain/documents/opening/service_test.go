package opening_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents/opening"
	"stockledger/internal/domain/period"
	"stockledger/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (context.Context, *opening.Service, id.ID, id.ID) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	g := group.NewGroup("RM", "Raw material")
	require.NoError(t, s.Groups.Create(ctx, g))
	it := item.NewItem("", "Steel rod", "kg", g.ID)
	require.NoError(t, s.Items.Create(ctx, it))
	wh := warehouse.NewWarehouse("", "Yard")
	require.NoError(t, s.Warehouses.Create(ctx, wh))

	p, err := period.New(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, s.Periods.Save(ctx, p))

	return ctx, opening.NewService(s.Openings, s.Deps()), it.ID, wh.ID
}

func TestOpening_OnePerFinancialYear(t *testing.T) {
	ctx, svc, itemID, whID := setup(t)

	first := opening.New(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	first.AddLine(itemID, whID, types.Units(10))
	require.NoError(t, svc.Create(ctx, first))

	same := opening.New(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	same.AddLine(itemID, whID, types.Units(5))
	err := svc.Create(ctx, same)
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "lines[0].itemId", appErr.Fields[0].Field)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Fields[0].Code)

	next := opening.New(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	next.AddLine(itemID, whID, types.Units(7))
	assert.NoError(t, svc.Create(ctx, next))
}

func TestOpening_EditKeepsItsOwnKey(t *testing.T) {
	ctx, svc, itemID, whID := setup(t)

	doc := opening.New(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	doc.AddLine(itemID, whID, types.Units(10))
	require.NoError(t, svc.Create(ctx, doc))

	doc.Lines[0].Quantity = types.Units(12)
	assert.NoError(t, svc.Update(ctx, doc))
}

func TestOpening_RepeatedKeyInOneDocument(t *testing.T) {
	ctx, svc, itemID, whID := setup(t)

	doc := opening.New(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	doc.AddLine(itemID, whID, types.Units(1))
	doc.AddLine(itemID, whID, types.Units(2))
	doc.AddLine(itemID, id.New(), -1)

	err := svc.Create(ctx, doc)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	fields := map[string]string{}
	for _, f := range appErr.Fields {
		fields[f.Field] = f.Code
	}
	assert.Equal(t, apperror.CodeDuplicate, fields["lines[1].itemId"])
	assert.Equal(t, apperror.CodeInvalid, fields["lines[2].quantity"])
	assert.Equal(t, apperror.CodeNotFound, fields["lines[2].warehouseId"])
}
