package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

type base struct {
	Date time.Time `json:"date" validate:"required"`
}

type line struct {
	ItemID   id.ID          `json:"itemId" validate:"required"`
	From     id.ID          `json:"fromWarehouseId" validate:"required"`
	To       id.ID          `json:"toWarehouseId" validate:"required,differs=From"`
	Quantity types.Quantity `json:"quantity" validate:"gt=0,whole"`
}

type doc struct {
	base
	Kind  string `json:"kind" validate:"oneof=a b"`
	Lines []line `json:"lines" validate:"required,min=1,dive"`
}

func TestStruct_Valid(t *testing.T) {
	wh := id.New()
	d := doc{
		base:  base{Date: time.Now()},
		Kind:  "a",
		Lines: []line{{ItemID: id.New(), From: wh, To: id.New(), Quantity: types.Units(2)}},
	}
	assert.True(t, Struct(d).Empty())
	assert.NoError(t, Check(d))
}

func TestStruct_CollectsEveryFailure(t *testing.T) {
	wh := id.New()
	d := doc{
		Kind: "c",
		Lines: []line{
			{ItemID: id.New(), From: wh, To: id.New(), Quantity: types.Units(1)},
			{From: wh, To: wh, Quantity: types.Quantity(15_000)},
			{ItemID: id.New(), From: wh, To: id.New(), Quantity: types.Units(-1)},
		},
	}

	fields := Struct(d)
	byPath := map[string]string{}
	for _, f := range fields {
		byPath[f.Field] = f.Code
	}

	assert.Equal(t, apperror.CodeRequired, byPath["date"])
	assert.Equal(t, apperror.CodeInvalid, byPath["kind"])
	assert.Equal(t, apperror.CodeRequired, byPath["lines[1].itemId"])
	assert.Equal(t, apperror.CodeInvalid, byPath["lines[1].toWarehouseId"])
	assert.Equal(t, apperror.CodeInvalid, byPath["lines[1].quantity"])
	assert.Equal(t, apperror.CodeInvalid, byPath["lines[2].quantity"])
	assert.NotContains(t, byPath, "lines[0].quantity")
}

func TestStruct_DiffersComparesIDValues(t *testing.T) {
	a, b := id.New(), id.New()
	require.NotEqual(t, a, b)

	ok := line{ItemID: id.New(), From: a, To: b, Quantity: types.Units(1)}
	assert.True(t, Struct(ok).Empty())

	same := line{ItemID: id.New(), From: a, To: a, Quantity: types.Units(1)}
	fields := Struct(same)
	require.Len(t, fields, 1)
	assert.Equal(t, "toWarehouseId", fields[0].Field)
	assert.Equal(t, apperror.CodeInvalid, fields[0].Code)
}

func TestStruct_EmptyLines(t *testing.T) {
	d := doc{base: base{Date: time.Now()}, Kind: "b"}
	err := Check(d)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "lines", appErr.Fields[0].Field)
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "date", fieldPath("Inward.~.~.date"))
	assert.Equal(t, "lines[0].quantity", fieldPath("Inward.lines[0].quantity"))
}
