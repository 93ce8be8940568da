package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func move(kind ledger.Kind, rt entity.RecordType, date time.Time, qty int64) entity.StockMovement {
	return entity.NewStockMovement(id.New(), string(kind), date, rt, id.New(), 1,
		itemID, warehouseID, types.Units(qty), "")
}

var (
	itemID      = id.New()
	warehouseID = id.New()
)

func TestBalance_AsOf(t *testing.T) {
	moves := []entity.StockMovement{
		move(ledger.KindOpening, entity.RecordTypeReceipt, day(2024, time.April, 1), 100),
		move(ledger.KindInward, entity.RecordTypeReceipt, day(2024, time.May, 10), 50),
		move(ledger.KindOutward, entity.RecordTypeExpense, day(2024, time.June, 1), 30),
		move(ledger.KindOpening, entity.RecordTypeReceipt, day(2025, time.April, 1), 90),
	}

	tests := []struct {
		name string
		asOf *time.Time
		want int64
	}{
		{"everything", nil, 210},
		{"mid may", ptr(day(2024, time.May, 15)), 150},
		{"end of year", ptr(day(2025, time.March, 31)), 120},
		{"next year drops last opening", ptr(day(2025, time.April, 1)), 210 - 100},
		{"before anything", ptr(day(2024, time.March, 1)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, types.Units(tt.want), Balance(moves, tt.asOf))
		})
	}
}

func TestBuildLedger_SameDayOrderAndFinalBalance(t *testing.T) {
	d := day(2024, time.July, 1)
	moves := []entity.StockMovement{
		move(ledger.KindAdjustment, entity.RecordTypeExpense, d, 1),
		move(ledger.KindOutward, entity.RecordTypeExpense, d, 4),
		move(ledger.KindTransfer, entity.RecordTypeReceipt, d, 2),
		move(ledger.KindInward, entity.RecordTypeReceipt, d, 10),
		move(ledger.KindProduction, entity.RecordTypeReceipt, day(2024, time.June, 30), 3),
	}

	entries := BuildLedger(moves)

	require.Len(t, entries, 5)
	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{
		"Production (Produced)",
		"Inward",
		"Outward",
		"Transfer In",
		"Adjustment (Decrease)",
	}, labels)
	assert.Equal(t, Balance(moves, nil), entries[len(entries)-1].Balance)
	assert.Equal(t, types.Units(4), entries[2].Out)
	assert.Equal(t, types.Units(13), entries[1].Balance)
}

func TestBalances_PerKey(t *testing.T) {
	other := id.New()
	a := move(ledger.KindTransfer, entity.RecordTypeExpense, day(2024, time.May, 1), 5)
	b := move(ledger.KindTransfer, entity.RecordTypeReceipt, day(2024, time.May, 1), 5)
	b.WarehouseID = other

	got := Balances([]entity.StockMovement{a, b}, nil)

	assert.Equal(t, types.Units(-5), got[ledger.StockKey{ItemID: itemID, WarehouseID: warehouseID}])
	assert.Equal(t, types.Units(5), got[ledger.StockKey{ItemID: itemID, WarehouseID: other}])
}

func ptr[T any](v T) *T { return &v }
