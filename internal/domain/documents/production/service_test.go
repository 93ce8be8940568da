package production_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents/production"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/memory"
)

type plant struct {
	ctx      context.Context
	store    *memory.Store
	finished *group.Group
	raw      *group.Group
	chair    *item.Item
	wood     *item.Item
	glue     *item.Item
	wh       *warehouse.Warehouse
}

func newPlant(t *testing.T) *plant {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	p := &plant{
		ctx:      ctx,
		store:    s,
		finished: group.NewGroup("FG", "Finished goods"),
		raw:      group.NewGroup("RM", "Raw material"),
		wh:       warehouse.NewWarehouse("W1", "Workshop"),
	}
	other := group.NewGroup("MISC", "Sundries")
	for _, g := range []*group.Group{p.finished, p.raw, other} {
		require.NoError(t, s.Groups.Create(ctx, g))
	}
	p.chair = item.NewItem("CH", "Chair", "pcs", p.finished.ID)
	p.wood = item.NewItem("WD", "Wood plank", "pcs", p.raw.ID)
	p.glue = item.NewItem("GL", "Glue", "kg", other.ID)
	for _, it := range []*item.Item{p.chair, p.wood, p.glue} {
		require.NoError(t, s.Items.Create(ctx, it))
	}
	require.NoError(t, s.Warehouses.Create(ctx, p.wh))

	active, err := period.New(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, s.Periods.Save(ctx, active))
	return p
}

func (p *plant) service(c production.Classifier) *production.Service {
	return production.NewService(p.store.Productions, p.store.Deps(), c, p.store.Numbers, numerator.DefaultOptions())
}

func (p *plant) stock(t *testing.T, it *item.Item) types.Quantity {
	t.Helper()
	q, err := stock.NewService(p.store.Stock, nil).ComputeStock(p.ctx, it.ID, p.wh.ID, nil)
	require.NoError(t, err)
	return q
}

func TestProduction_ExplicitTypes(t *testing.T) {
	p := newPlant(t)
	svc := p.service(nil)

	run := production.New(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), "")
	run.AddLine(p.chair.ID, p.wh.ID, types.Units(2), production.LineProduced)
	run.AddLine(p.wood.ID, p.wh.ID, types.Units(8), production.LineConsumed)
	require.NoError(t, svc.Create(p.ctx, run))

	assert.Equal(t, "PRD-2025-00001", run.ReferenceNo)
	assert.Equal(t, types.Units(2), p.stock(t, p.chair))
	assert.Equal(t, types.Units(-8), p.stock(t, p.wood))
}

func TestProduction_GroupRoles(t *testing.T) {
	p := newPlant(t)
	roles := production.NewGroupRoles(p.store.Items, []id.ID{p.finished.ID}, []id.ID{p.raw.ID})
	svc := p.service(roles)

	run := production.New(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), "")
	run.AddLine(p.chair.ID, p.wh.ID, types.Units(1), "")
	run.AddLine(p.wood.ID, p.wh.ID, types.Units(4), "")
	run.AddLine(p.glue.ID, p.wh.ID, types.Units(1), production.LineConsumed)
	require.NoError(t, svc.Create(p.ctx, run))

	assert.Equal(t, production.LineProduced, run.Lines[0].Type)
	assert.Equal(t, production.LineConsumed, run.Lines[1].Type)
	assert.Equal(t, types.Units(-1), p.stock(t, p.glue))
}

func TestProduction_UnclassifiedLineIsRequired(t *testing.T) {
	p := newPlant(t)
	roles := production.NewGroupRoles(p.store.Items, []id.ID{p.finished.ID}, []id.ID{p.raw.ID})
	svc := p.service(roles)

	run := production.New(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), "")
	run.AddLine(p.chair.ID, p.wh.ID, types.Units(1), "")
	run.AddLine(p.glue.ID, p.wh.ID, types.Units(1), "")
	err := svc.Create(p.ctx, run)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "lines[1].type", appErr.Fields[0].Field)
	assert.Equal(t, apperror.CodeRequired, appErr.Fields[0].Code)
	assert.True(t, p.stock(t, p.chair).IsZero())
}

func TestExpressionClassifier(t *testing.T) {
	p := newPlant(t)
	c, err := production.NewExpressionClassifier(`group.code == "FG" || item.name.startsWith("Chair")`, p.store.Items, p.store.Groups)
	require.NoError(t, err)

	got, err := c.Classify(p.ctx, p.chair.ID)
	require.NoError(t, err)
	assert.Equal(t, production.LineProduced, got)

	got, err = c.Classify(p.ctx, p.wood.ID)
	require.NoError(t, err)
	assert.Equal(t, production.LineConsumed, got)

	got, err = c.Classify(p.ctx, id.New())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpressionClassifier_RejectsNonBoolean(t *testing.T) {
	_, err := production.NewExpressionClassifier(`item.name`, nil, nil)
	assert.Error(t, err)

	_, err = production.NewExpressionClassifier(`item.name ==`, nil, nil)
	assert.Error(t, err)
}
