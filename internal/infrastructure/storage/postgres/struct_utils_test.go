package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/documents/transfer"
)

func TestExtractDBColumns_SkipsUntaggedSets(t *testing.T) {
	cols := ExtractDBColumns[item.Item]()

	assert.Equal(t, []string{"id", "version", "code", "name", "unit", "group_id"}, cols)
	assert.NotContains(t, cols, "aliases")
}

func TestExtractDBColumns_Header(t *testing.T) {
	cols := ExtractDBColumns[transfer.Transfer]()

	for _, expected := range []string{"id", "version", "created_at", "updated_at", "created_by", "updated_by", "date", "remarks", "reference_no"} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "lines")
}

func TestStructToMap_Line(t *testing.T) {
	line := transfer.Line{
		Line:            entity.Line{LineID: id.New(), LineNo: 2},
		ItemID:          id.New(),
		FromWarehouseID: id.New(),
		ToWarehouseID:   id.New(),
		Quantity:        types.Units(4),
	}

	m := StructToMap(line)

	assert.Equal(t, line.LineID, m["line_id"])
	assert.Equal(t, 2, m["line_no"])
	assert.Equal(t, line.FromWarehouseID, m["from_warehouse_id"])
	assert.Equal(t, types.Units(4), m["quantity"])
	assert.Len(t, m, 6)
}

func TestStructToMap_Header(t *testing.T) {
	doc := transfer.New(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "TRF-2025-00001")
	doc.Version = 3

	m := StructToMap(doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, "TRF-2025-00001", m["reference_no"])
	assert.Equal(t, doc.Date, m["date"])
}

func TestWithoutAndQualify(t *testing.T) {
	cols := []string{"id", "version", "name"}

	assert.Equal(t, []string{"name"}, Without(cols, "id", "version"))
	assert.Equal(t, []string{"h.id", "h.version", "h.name"}, Qualify("h", cols))
}
