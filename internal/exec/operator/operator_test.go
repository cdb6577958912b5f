package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quilldb/internal/btree"
	"quilldb/internal/dblog"
	"quilldb/internal/heap"
	"quilldb/internal/sql/ast"
	"quilldb/internal/storage"
	"quilldb/internal/value"
)

// fakeOperator feeds a fixed slice of tuples, for testing operators in
// isolation without a real heap table underneath.
type fakeOperator struct {
	schema value.Schema
	rows   []value.Tuple
	pos    int
	opened bool
	closed bool
}

func (f *fakeOperator) Schema() value.Schema { return f.schema }
func (f *fakeOperator) Open() error          { f.opened = true; return nil }
func (f *fakeOperator) Next() (value.Tuple, bool, error) {
	if f.pos >= len(f.rows) {
		return value.Tuple{}, false, nil
	}
	t := f.rows[f.pos]
	f.pos++
	return t, true, nil
}
func (f *fakeOperator) Close() error { f.closed = true; return nil }

func intSchema(names ...string) value.Schema {
	cols := make([]value.Column, len(names))
	for i, n := range names {
		cols[i] = value.Column{Name: n, Type: value.Int64}
	}
	return value.NewSchema(cols...)
}

func drain(t *testing.T, op Operator) []value.Tuple {
	t.Helper()
	require.NoError(t, op.Open())
	var out []value.Tuple
	for {
		tup, ok, err := op.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, tup)
	}
	require.NoError(t, op.Close())
	return out
}

func newTestHeapTable(t *testing.T) *heap.Table {
	sm, err := storage.New(t.TempDir(), 0, dblog.Discard())
	require.NoError(t, err)
	schema := intSchema("id")
	tbl := heap.Open("t", "t.heap", schema, sm, dblog.Discard())
	require.NoError(t, tbl.Create())
	return tbl
}

func TestSeqScanVisitsAllLiveRows(t *testing.T) {
	tbl := newTestHeapTable(t)
	for i := 0; i < 3; i++ {
		_, err := tbl.Insert(value.NewTuple(value.NewInt64(int64(i))))
		require.NoError(t, err)
	}

	rows := drain(t, NewSeqScan(tbl))
	assert.Len(t, rows, 3)
}

func TestFilterKeepsOnlyTrueRows(t *testing.T) {
	schema := intSchema("a")
	fake := &fakeOperator{schema: schema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(1)),
		value.NewTuple(value.NewInt64(2)),
		value.NewTuple(value.NewInt64(3)),
	}}
	expr := &ast.BinaryExpr{Op: ast.OpGt, Left: &ast.ColumnRef{Pos: 0}, Right: &ast.Literal{Val: value.NewInt64(1)}}
	rows := drain(t, NewFilter(fake, expr))
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].At(0).Int64())
	assert.Equal(t, int64(3), rows[1].At(0).Int64())
}

func TestFilterRejectsNull(t *testing.T) {
	schema := intSchema("a")
	fake := &fakeOperator{schema: schema, rows: []value.Tuple{value.NewTuple(value.NewNull())}}
	expr := &ast.IsNullExpr{Operand: &ast.ColumnRef{Pos: 0}, Negate: true}
	rows := drain(t, NewFilter(fake, expr))
	assert.Empty(t, rows)
}

func TestProjectReordersColumns(t *testing.T) {
	schema := intSchema("a", "b")
	fake := &fakeOperator{schema: schema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(1), value.NewInt64(2)),
	}}
	exprs := []ast.Expr{&ast.ColumnRef{Pos: 1}, &ast.ColumnRef{Pos: 0}}
	rows := drain(t, NewProject(fake, exprs, intSchema("b", "a")))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].At(0).Int64())
	assert.Equal(t, int64(1), rows[0].At(1).Int64())
}

func TestLimitAndOffset(t *testing.T) {
	schema := intSchema("a")
	rows := make([]value.Tuple, 10)
	for i := range rows {
		rows[i] = value.NewTuple(value.NewInt64(int64(i)))
	}
	fake := &fakeOperator{schema: schema, rows: rows}
	limit := int64(3)
	out := drain(t, NewLimit(fake, &limit, 2))
	require.Len(t, out, 3)
	assert.Equal(t, int64(2), out[0].At(0).Int64())
	assert.Equal(t, int64(4), out[2].At(0).Int64())
}

func TestLimitNilMeansUnboundedAfterOffset(t *testing.T) {
	schema := intSchema("a")
	fake := &fakeOperator{schema: schema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(1)),
		value.NewTuple(value.NewInt64(2)),
	}}
	out := drain(t, NewLimit(fake, nil, 1))
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].At(0).Int64())
}

func TestSortOrdersAscendingWithNullsFirst(t *testing.T) {
	schema := intSchema("a")
	fake := &fakeOperator{schema: schema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(3)),
		value.NewTuple(value.NewNull()),
		value.NewTuple(value.NewInt64(1)),
	}}
	keys := []ast.Expr{&ast.ColumnRef{Pos: 0}}
	out := drain(t, NewSort(fake, keys, []bool{false}))
	require.Len(t, out, 3)
	assert.True(t, out[0].At(0).IsNull())
	assert.Equal(t, int64(1), out[1].At(0).Int64())
	assert.Equal(t, int64(3), out[2].At(0).Int64())
}

func TestSortDescending(t *testing.T) {
	schema := intSchema("a")
	fake := &fakeOperator{schema: schema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(1)),
		value.NewTuple(value.NewInt64(3)),
		value.NewTuple(value.NewInt64(2)),
	}}
	keys := []ast.Expr{&ast.ColumnRef{Pos: 0}}
	out := drain(t, NewSort(fake, keys, []bool{true}))
	require.Len(t, out, 3)
	assert.Equal(t, int64(3), out[0].At(0).Int64())
	assert.Equal(t, int64(2), out[1].At(0).Int64())
	assert.Equal(t, int64(1), out[2].At(0).Int64())
}

func TestAggregateCountSumByGroup(t *testing.T) {
	schema := intSchema("cat", "val")
	fake := &fakeOperator{schema: schema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(1), value.NewInt64(10)),
		value.NewTuple(value.NewInt64(1), value.NewInt64(20)),
		value.NewTuple(value.NewInt64(2), value.NewInt64(5)),
	}}
	groupBy := []ast.Expr{&ast.ColumnRef{Pos: 0}}
	aggs := []AggSpec{
		{Func: AggCount, Arg: &ast.ColumnRef{Pos: 1}},
		{Func: AggSum, Arg: &ast.ColumnRef{Pos: 1}},
	}
	out := drain(t, NewAggregate(fake, groupBy, aggs, intSchema("cat", "cnt", "sum")))
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].At(0).Int64())
	assert.Equal(t, int64(2), out[0].At(1).Int64())
	assert.Equal(t, 30.0, out[0].At(2).Float64())
}

func TestAggregateWholeTableZeroRowsEmitsOneRow(t *testing.T) {
	schema := intSchema("val")
	fake := &fakeOperator{schema: schema}
	aggs := []AggSpec{{Func: AggCount, Arg: nil}}
	out := drain(t, NewAggregate(fake, nil, aggs, intSchema("cnt")))
	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].At(0).Int64())
}

func TestAggregateCountStarIgnoresNullArg(t *testing.T) {
	schema := intSchema("val")
	fake := &fakeOperator{schema: schema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(1)),
		value.NewTuple(value.NewNull()),
	}}
	aggs := []AggSpec{
		{Func: AggCount, Arg: nil},
		{Func: AggCount, Arg: &ast.ColumnRef{Pos: 0}},
	}
	out := drain(t, NewAggregate(fake, nil, aggs, intSchema("all", "nonnull")))
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].At(0).Int64())
	assert.Equal(t, int64(1), out[0].At(1).Int64())
}

func TestHashJoinMatchesOnEqualKeys(t *testing.T) {
	leftSchema := intSchema("lid", "lval")
	rightSchema := intSchema("rid", "rval")
	left := &fakeOperator{schema: leftSchema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(1), value.NewInt64(100)),
		value.NewTuple(value.NewInt64(2), value.NewInt64(200)),
	}}
	right := &fakeOperator{schema: rightSchema, rows: []value.Tuple{
		value.NewTuple(value.NewInt64(1), value.NewInt64(1000)),
		value.NewTuple(value.NewInt64(3), value.NewInt64(3000)),
	}}
	join := NewHashJoin(left, right, &ast.ColumnRef{Pos: 0}, &ast.ColumnRef{Pos: 0})
	out := drain(t, join)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].At(0).Int64())
	assert.Equal(t, int64(1000), out[0].At(3).Int64())
}

func TestHashJoinSkipsNullKeys(t *testing.T) {
	leftSchema := intSchema("lid")
	rightSchema := intSchema("rid")
	left := &fakeOperator{schema: leftSchema, rows: []value.Tuple{value.NewTuple(value.NewNull())}}
	right := &fakeOperator{schema: rightSchema, rows: []value.Tuple{value.NewTuple(value.NewNull())}}
	join := NewHashJoin(left, right, &ast.ColumnRef{Pos: 0}, &ast.ColumnRef{Pos: 0})
	out := drain(t, join)
	assert.Empty(t, out)
}

func newTestIndex(t *testing.T, sm *storage.Manager) *btree.Tree {
	tree, err := btree.Open("idx", "idx.idx", value.Int64, sm, dblog.Discard())
	require.NoError(t, err)
	return tree
}

func TestIndexScanEqualPointLookup(t *testing.T) {
	sm, err := storage.New(t.TempDir(), 0, dblog.Discard())
	require.NoError(t, err)
	schema := intSchema("id")
	tbl := heap.Open("t", "t.heap", schema, sm, dblog.Discard())
	require.NoError(t, tbl.Create())
	tree := newTestIndex(t, sm)

	for i := int64(0); i < 5; i++ {
		rid, err := tbl.Insert(value.NewTuple(value.NewInt64(i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(value.NewInt64(i), rid))
	}

	scan := NewIndexScanEqual(tbl, tree, value.NewInt64(3))
	rows := drain(t, scan)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].At(0).Int64())
}

func TestIndexScanRangeSkipsDeletedRow(t *testing.T) {
	sm, err := storage.New(t.TempDir(), 0, dblog.Discard())
	require.NoError(t, err)
	schema := intSchema("id")
	tbl := heap.Open("t", "t.heap", schema, sm, dblog.Discard())
	require.NoError(t, tbl.Create())
	tree := newTestIndex(t, sm)

	var rids []value.RID
	for i := int64(0); i < 5; i++ {
		rid, err := tbl.Insert(value.NewTuple(value.NewInt64(i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(value.NewInt64(i), rid))
		rids = append(rids, rid)
	}
	_, err = tbl.Remove(rids[2])
	require.NoError(t, err)

	min := value.NewInt64(0)
	max := value.NewInt64(4)
	scan := NewIndexScanRange(tbl, tree, &min, &max)
	rows := drain(t, scan)
	assert.Len(t, rows, 4)
}
