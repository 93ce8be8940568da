package register_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
)

const selectMovements = "SELECT recorder_id, recorder_type, line_id, line_no, period, record_type, " +
	"warehouse_id, item_id, quantity, reference, created_at FROM stock_movements"

func TestMovementsQuery(t *testing.T) {
	repo := NewStockRepo(nil)
	item := id.New()
	from := time.Date(2025, 4, 1, 15, 30, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   stock.MovementFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "everything",
			wantSQL: selectMovements,
		},
		{
			name:     "item and inclusive days",
			filter:   stock.MovementFilter{ItemID: &item, From: &from, To: &to},
			wantSQL:  selectMovements + " WHERE item_id = $1 AND period >= $2 AND period <= $3",
			wantArgs: []any{item.String(), "2025-04-01", "2025-06-30"},
		},
		{
			name:     "recorder kinds",
			filter:   stock.MovementFilter{RecorderTypes: []ledger.Kind{ledger.KindInward, ledger.KindProduction}},
			wantSQL:  selectMovements + " WHERE recorder_type IN ($1,$2)",
			wantArgs: []any{"inward", "production"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.movementsQuery(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, len(tt.wantArgs), len(args))
			for n := range tt.wantArgs {
				assert.Equal(t, tt.wantArgs[n], args[n])
			}
		})
	}
}

func TestInsertQuery_OneRowPerMovement(t *testing.T) {
	repo := NewStockRepo(nil)
	recorder := id.New()
	date := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	ms := []entity.StockMovement{
		entity.NewStockMovement(recorder, "transfer", date, entity.RecordTypeExpense, id.New(), 1, id.New(), id.New(), types.Units(3), "TRF-2026-00001"),
		entity.NewStockMovement(recorder, "transfer", date, entity.RecordTypeReceipt, id.New(), 1, id.New(), id.New(), types.Units(3), "TRF-2026-00001"),
	}

	sql, args, err := repo.insertQuery(ms).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO stock_movements (recorder_id,recorder_type,line_id,line_no,period,record_type,warehouse_id,item_id,quantity,reference,created_at) VALUES ")
	assert.Len(t, args, 2*len(movementColumns))
	assert.Equal(t, entity.RecordTypeExpense, args[5])
	assert.Equal(t, types.Units(3), args[8])
}
