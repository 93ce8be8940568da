package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TimeOrdered(t *testing.T) {
	a, b := New(), New()
	assert.Equal(t, uuid.Version(7), a.Version())
	assert.LessOrEqual(t, Compare(a, b), 0)
}

func TestParseOptional(t *testing.T) {
	v, err := ParseOptional("  ")
	require.NoError(t, err)
	assert.Nil(t, v)

	want := New()
	v, err = ParseOptional(" " + want.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, want, *v)

	_, err = ParseOptional("nope")
	assert.Error(t, err)
}

func TestSortedUnique(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	in := []ID{b, uuid.Nil, a, b}
	assert.Equal(t, []ID{a, b}, SortedUnique(in))
	assert.Equal(t, b, in[0], "input is not modified")
}
