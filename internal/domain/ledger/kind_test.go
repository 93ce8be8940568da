package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

func TestRankOrder(t *testing.T) {
	order := []struct {
		k  Kind
		rt entity.RecordType
	}{
		{KindOpening, entity.RecordTypeReceipt},
		{KindInward, entity.RecordTypeReceipt},
		{KindOutward, entity.RecordTypeExpense},
		{KindProduction, entity.RecordTypeReceipt},
		{KindProduction, entity.RecordTypeExpense},
		{KindTransfer, entity.RecordTypeReceipt},
		{KindTransfer, entity.RecordTypeExpense},
		{KindAdjustment, entity.RecordTypeReceipt},
		{KindAdjustment, entity.RecordTypeExpense},
	}
	for n := 1; n < len(order); n++ {
		assert.Less(t, Rank(order[n-1].k, order[n-1].rt), Rank(order[n].k, order[n].rt), "%v", order[n])
	}
	assert.Equal(t, len(entryOrder), Rank(KindDeliveryIssue, entity.RecordTypeReceipt))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Transfer Out", Label(KindTransfer, entity.RecordTypeExpense))
	assert.Equal(t, "delivery_issue", Label(KindDeliveryIssue, entity.RecordTypeReceipt))
}

func TestMovesStock(t *testing.T) {
	assert.True(t, KindTransfer.MovesStock())
	assert.False(t, KindDeliveryIssue.MovesStock())
	assert.False(t, KindDeliveryReturn.MovesStock())
	assert.False(t, Kind("bogus").Valid())
}

func TestKeysOf(t *testing.T) {
	item, a, b := id.New(), id.New(), id.New()
	now := time.Now()
	mk := func(wh id.ID) entity.StockMovement {
		return entity.NewStockMovement(id.New(), "transfer", now, entity.RecordTypeReceipt, id.New(), 1, item, wh, types.Units(1), "")
	}

	keys := KeysOf([]entity.StockMovement{mk(a), mk(b)}, []entity.StockMovement{mk(a)})
	assert.Equal(t, []StockKey{{item, a}, {item, b}}, keys)
}
