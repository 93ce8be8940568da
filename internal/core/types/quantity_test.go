package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantity_String(t *testing.T) {
	tests := []struct {
		q    Quantity
		want string
	}{
		{Units(120), "120"},
		{Quantity(125_000), "12.5"},
		{Quantity(-1), "-0.0001"},
		{0, "0"},
		{Units(-30), "-30"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.q.String())
	}
}

func TestQuantity_JSON(t *testing.T) {
	var v struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
		C Quantity `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 10, "b": "2.25", "c": 1e2}`), &v))
	assert.Equal(t, Units(10), v.A)
	assert.Equal(t, Quantity(22_500), v.B)
	assert.Equal(t, Units(100), v.C)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 10, "b": 2.25, "c": 100}`, string(out))
}

func TestQuantity_ParseErrors(t *testing.T) {
	_, err := ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("abc")
	assert.Error(t, err)
	_, err = ParseQuantity("1e30")
	assert.Error(t, err)
}

func TestQuantity_RoundsExtraDigits(t *testing.T) {
	q, err := ParseQuantity("1.23456")
	require.NoError(t, err)
	assert.Equal(t, Quantity(12_346), q)
}

func TestQuantity_Whole(t *testing.T) {
	assert.True(t, Units(3).IsWhole())
	assert.False(t, Quantity(15_000).IsWhole())
	assert.True(t, decimal.RequireFromString("2.5").Equal(Quantity(25_000).Decimal()))
}
