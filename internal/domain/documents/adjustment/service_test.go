package adjustment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents/adjustment"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/memory"
)

func TestAdjustment_SignedByDirection(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	g := group.NewGroup("", "Parts")
	require.NoError(t, s.Groups.Create(ctx, g))
	it := item.NewItem("", "Washer", "pcs", g.ID)
	require.NoError(t, s.Items.Create(ctx, it))
	wh := warehouse.NewWarehouse("", "Main")
	require.NoError(t, s.Warehouses.Create(ctx, wh))
	p, err := period.New(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, s.Periods.Save(ctx, p))
	svc := adjustment.NewService(s.Adjustments, s.Deps())

	adj := adjustment.New(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), "stock count")
	adj.AddLine(it.ID, wh.ID, adjustment.Increase, types.Units(10))
	adj.AddLine(it.ID, wh.ID, adjustment.Decrease, types.NewQuantityFromFloat64(2.5))
	require.NoError(t, svc.Create(ctx, adj))

	qty, err := stock.NewService(s.Stock, nil).ComputeStock(ctx, it.ID, wh.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(7.5), qty)

	bad := adjustment.New(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), "")
	bad.AddLine(it.ID, wh.ID, "sideways", types.Units(1))
	err = svc.Create(ctx, bad)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	fields := map[string]string{}
	for _, f := range appErr.Fields {
		fields[f.Field] = f.Code
	}
	assert.Equal(t, apperror.CodeRequired, fields["reason"])
	assert.Equal(t, apperror.CodeInvalid, fields["lines[0].direction"])
}
