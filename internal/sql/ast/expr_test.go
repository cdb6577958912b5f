package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quilldb/internal/value"
)

func schemaAB() value.Schema {
	return value.NewSchema(
		value.Column{Name: "a", Type: value.Int64},
		value.Column{Name: "b", Type: value.Text},
	)
}

func TestLiteralEvaluate(t *testing.T) {
	lit := &Literal{Val: value.NewInt64(42)}
	v, err := lit.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())
}

func TestColumnRefEvaluate(t *testing.T) {
	schema := schemaAB()
	tup := value.NewTuple(value.NewInt64(7), value.NewText("x"))
	ref := &ColumnRef{Name: "b", Pos: 1}
	v, err := ref.Evaluate(tup, schema)
	require.NoError(t, err)
	assert.Equal(t, "x", v.Text())
}

func TestColumnRefOutOfRangeErrors(t *testing.T) {
	tup := value.NewTuple(value.NewInt64(1))
	ref := &ColumnRef{Name: "x", Pos: 5}
	_, err := ref.Evaluate(tup, value.Schema{})
	assert.Error(t, err)
}

func TestParamEvaluateUnresolvedErrors(t *testing.T) {
	p := &Param{Index: 0}
	_, err := p.Evaluate(value.Tuple{}, value.Schema{})
	assert.Error(t, err)
}

func TestBinaryExprArithmetic(t *testing.T) {
	expr := &BinaryExpr{Op: OpAdd, Left: &Literal{Val: value.NewInt64(2)}, Right: &Literal{Val: value.NewInt64(3)}}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int64())
}

func TestBinaryExprComparisonNullPropagates(t *testing.T) {
	expr := &BinaryExpr{Op: OpEq, Left: &Literal{Val: value.NewNull()}, Right: &Literal{Val: value.NewInt64(1)}}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestAndShortCircuitsOnFalse(t *testing.T) {
	expr := &BinaryExpr{
		Op:    OpAnd,
		Left:  &Literal{Val: value.NewBool(false)},
		Right: &Literal{Val: value.NewNull()},
	}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.False(t, v.IsNull())
	assert.False(t, v.Bool())
}

func TestOrShortCircuitsOnTrue(t *testing.T) {
	expr := &BinaryExpr{
		Op:    OpOr,
		Left:  &Literal{Val: value.NewBool(true)},
		Right: &Literal{Val: value.NewNull()},
	}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestAndWithNullAndTrueIsNull(t *testing.T) {
	expr := &BinaryExpr{
		Op:    OpAnd,
		Left:  &Literal{Val: value.NewNull()},
		Right: &Literal{Val: value.NewBool(true)},
	}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestUnaryNot(t *testing.T) {
	expr := &UnaryExpr{Op: OpNot, Operand: &Literal{Val: value.NewBool(false)}}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestUnaryNegate(t *testing.T) {
	expr := &UnaryExpr{Op: OpNeg, Operand: &Literal{Val: value.NewInt64(5)}}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.Equal(t, int64(-5), v.Int64())
}

func TestIsNullExpr(t *testing.T) {
	expr := &IsNullExpr{Operand: &Literal{Val: value.NewNull()}}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.Bool())

	negated := &IsNullExpr{Operand: &Literal{Val: value.NewNull()}, Negate: true}
	v, err = negated.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.False(t, v.Bool())
}

func TestInExprMatchesAndMisses(t *testing.T) {
	expr := &InExpr{
		Operand: &Literal{Val: value.NewInt64(2)},
		List:    []Expr{&Literal{Val: value.NewInt64(1)}, &Literal{Val: value.NewInt64(2)}},
	}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.Bool())

	miss := &InExpr{
		Operand: &Literal{Val: value.NewInt64(9)},
		List:    []Expr{&Literal{Val: value.NewInt64(1)}},
	}
	v, err = miss.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.False(t, v.Bool())
}

func TestInExprNegate(t *testing.T) {
	expr := &InExpr{
		Operand: &Literal{Val: value.NewInt64(9)},
		List:    []Expr{&Literal{Val: value.NewInt64(1)}},
		Negate:  true,
	}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestLikeWildcards(t *testing.T) {
	expr := &BinaryExpr{
		Op:    OpLike,
		Left:  &Literal{Val: value.NewText("hello")},
		Right: &Literal{Val: value.NewText("h%o")},
	}
	v, err := expr.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.Bool())

	noMatch := &BinaryExpr{
		Op:    OpLike,
		Left:  &Literal{Val: value.NewText("hello")},
		Right: &Literal{Val: value.NewText("x%")},
	}
	v, err = noMatch.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.False(t, v.Bool())
}

func TestFuncCallAggregateEvaluatesToNullInIsolation(t *testing.T) {
	fc := &FuncCall{Name: "COUNT", Star: true}
	v, err := fc.Evaluate(value.Tuple{}, value.Schema{})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestCloneProducesIndependentTree(t *testing.T) {
	orig := &BinaryExpr{Op: OpAdd, Left: &Literal{Val: value.NewInt64(1)}, Right: &Literal{Val: value.NewInt64(2)}}
	clone := orig.Clone().(*BinaryExpr)
	clone.Left.(*Literal).Val = value.NewInt64(99)
	assert.Equal(t, int64(1), orig.Left.(*Literal).Val.Int64())
}
