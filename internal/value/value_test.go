package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKindAndAccessors(t *testing.T) {
	assert.Equal(t, Int64, NewInt64(42).Kind())
	assert.True(t, NewNull().IsNull())
	assert.False(t, NewInt32(1).IsNull())
	assert.Equal(t, "hello", NewText("hello").Text())
	assert.Equal(t, []byte("ab"), NewBytes([]byte("ab")).Bytes())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NewInt64(5).Equal(NewInt64(5)))
	assert.False(t, NewInt64(5).Equal(NewInt64(6)))
	assert.True(t, NewText("x").Equal(NewText("x")))
	assert.True(t, NewNull().Equal(NewNull()))
}

func TestCompareNumericPromotion(t *testing.T) {
	c, err := Compare(NewInt32(3), NewFloat64(3.0))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = Compare(NewInt64(1), NewInt64(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestCompareNullIsError(t *testing.T) {
	_, err := Compare(NewNull(), NewInt64(1))
	assert.Error(t, err)
}

func TestCompareIncompatibleKinds(t *testing.T) {
	_, err := Compare(NewText("a"), NewBool(true))
	assert.Error(t, err)
}

func TestArithmeticPromotion(t *testing.T) {
	v, err := Add(NewInt32(1), NewInt64(2))
	require.NoError(t, err)
	assert.Equal(t, Int64, v.Kind())
	assert.Equal(t, int64(3), v.Int64())

	v, err = Add(NewInt32(1), NewFloat64(2.5))
	require.NoError(t, err)
	assert.Equal(t, Float64, v.Kind())
	assert.InDelta(t, 3.5, v.Float64(), 1e-9)
}

func TestDivByZero(t *testing.T) {
	_, err := Div(NewInt64(1), NewInt64(0))
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	v, err := Concat(NewText("foo"), NewText("bar"))
	require.NoError(t, err)
	assert.Equal(t, "foobar", v.Text())
}

func TestCoerceToNarrowing(t *testing.T) {
	v, err := CoerceTo(NewFloat64(3.0), Int32)
	require.NoError(t, err)
	assert.Equal(t, int32(3), v.Int32())

	_, err = CoerceTo(NewFloat64(3.5), Int32)
	assert.Error(t, err)
}

func TestCoerceNullAlwaysSucceeds(t *testing.T) {
	v, err := CoerceTo(NewNull(), Int64)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestCoerceToText(t *testing.T) {
	v, err := CoerceTo(NewInt64(7), Text)
	require.NoError(t, err)
	assert.Equal(t, "7", v.Text())
}

func TestSchemaIndexOf(t *testing.T) {
	s := NewSchema(
		Column{Name: "id", Type: Int64},
		Column{Name: "name", Type: Text},
	)
	assert.Equal(t, 0, s.IndexOf("id"))
	assert.Equal(t, 1, s.IndexOf("name"))
	assert.Equal(t, -1, s.IndexOf("missing"))
}

func TestTupleProjectAndConcat(t *testing.T) {
	tup := NewTuple(NewInt64(1), NewText("a"), NewBool(true))
	projected := tup.Project([]int{2, 0})
	assert.Equal(t, 2, projected.Len())
	assert.True(t, projected.At(0).Bool())
	assert.Equal(t, int64(1), projected.At(1).Int64())

	other := NewTuple(NewFloat64(9.5))
	combined := tup.Concat(other)
	assert.Equal(t, 4, combined.Len())
}

func TestRIDOrderingAndEquality(t *testing.T) {
	a := RID{Page: 1, Slot: 2}
	b := RID{Page: 1, Slot: 3}
	c := RID{Page: 2, Slot: 0}
	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, b.Less(a))
	assert.True(t, a.Equal(RID{Page: 1, Slot: 2}))
}

func TestDateTruncatesToMidnight(t *testing.T) {
	v := NewDate(time.Date(2026, 8, 6, 13, 45, 0, 0, time.UTC))
	assert.Equal(t, 0, v.Time().Hour())
}
