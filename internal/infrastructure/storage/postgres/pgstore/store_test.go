package pgstore

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

func newTestStore() *Store {
	return &Store{builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

func TestMissingQuery(t *testing.T) {
	s := newTestStore()
	ids := []id.ID{id.New(), id.New()}

	q, err := s.missingQuery(domain.CatalogItem, ids)
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM items WHERE id IN ($1,$2)", sql)
	assert.Len(t, args, 2)

	_, err = s.missingQuery(domain.CatalogBOM, ids)
	assert.Error(t, err)
}

func TestExistsQuery(t *testing.T) {
	s := newTestStore()
	target := id.New()

	sql, args, err := s.existsQuery(usageRef{"transfer", "transfer_lines", "from_warehouse_id"}, target).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT EXISTS ( SELECT 1 FROM transfer_lines WHERE from_warehouse_id = $1 LIMIT 1 )", sql)
	assert.Equal(t, []any{target.String()}, args)
}

func TestUsageRefs(t *testing.T) {
	names := func(refs []usageRef) []string {
		var out []string
		for _, r := range refs {
			out = append(out, r.table+"."+r.column)
		}
		return out
	}

	assert.Equal(t, []string{"items.group_id"}, names(usageRefs(domain.CatalogGroup)))

	wh := names(usageRefs(domain.CatalogWarehouse))
	assert.Equal(t, "warehouses.parent_id", wh[0])
	assert.Contains(t, wh, "transfer_lines.from_warehouse_id")
	assert.Contains(t, wh, "transfer_lines.to_warehouse_id")
	assert.Contains(t, wh, "delivery_return_lines.warehouse_id")

	it := names(usageRefs(domain.CatalogItem))
	assert.Equal(t, []string{"boms.item_id", "bom_components.item_id"}, it[:2])
	assert.Len(t, it, 10)

	ct := usageRefs(domain.CatalogContact)
	require.Len(t, ct, 3)
	assert.Equal(t, "delivery_issue", ct[2].used)
}
