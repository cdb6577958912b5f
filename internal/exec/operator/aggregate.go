package operator

import (
	"fmt"
	"sort"
	"strings"

	"quilldb/internal/sql/ast"
	"quilldb/internal/value"
)

// AggFunc names one of the aggregate functions the engine supports.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

// AggSpec is one aggregate expression in the SELECT/HAVING list. Arg is
// nil for COUNT(*).
type AggSpec struct {
	Func     AggFunc
	Arg      ast.Expr
	Distinct bool
}

// Aggregate groups its child's rows by groupBy (possibly empty, for a
// single whole-table aggregate), computing each AggSpec per group. It is
// a blocking operator like Sort: groups are fully computed at Open().
//
// Go's map iteration order is unspecified, so groups are assembled into
// a map keyed by their encoded group values and then emitted in
// lexicographic order of that key, once, at Open() — not relied upon to
// coincide with insertion order, and not re-sorted per Next() call.
type Aggregate struct {
	child   Operator
	groupBy []ast.Expr
	aggs    []AggSpec
	schema  value.Schema

	rows []value.Tuple
	pos  int
}

func NewAggregate(child Operator, groupBy []ast.Expr, aggs []AggSpec, outSchema value.Schema) *Aggregate {
	return &Aggregate{child: child, groupBy: groupBy, aggs: aggs, schema: outSchema}
}

func (a *Aggregate) Schema() value.Schema { return a.schema }

type groupState struct {
	keyValues []value.Value
	counts    []int64
	sums      []float64
	mins      []value.Value
	maxs      []value.Value
	haveMin   []bool
	haveMax   []bool
	distinct  []map[string]struct{}
}

func (a *Aggregate) Open() error {
	if err := a.child.Open(); err != nil {
		return err
	}
	schema := a.child.Schema()

	groups := make(map[string]*groupState)
	var order []string

	for {
		tup, ok, err := a.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		keyVals := make([]value.Value, len(a.groupBy))
		for i, g := range a.groupBy {
			v, err := g.Evaluate(tup, schema)
			if err != nil {
				return err
			}
			keyVals[i] = v
		}
		key := encodeGroupKey(keyVals)

		g, ok := groups[key]
		if !ok {
			g = &groupState{
				keyValues: keyVals,
				counts:    make([]int64, len(a.aggs)),
				sums:      make([]float64, len(a.aggs)),
				mins:      make([]value.Value, len(a.aggs)),
				maxs:      make([]value.Value, len(a.aggs)),
				haveMin:   make([]bool, len(a.aggs)),
				haveMax:   make([]bool, len(a.aggs)),
				distinct:  make([]map[string]struct{}, len(a.aggs)),
			}
			groups[key] = g
			order = append(order, key)
		}

		for i, spec := range a.aggs {
			if err := accumulate(g, i, spec, tup, schema); err != nil {
				return err
			}
		}
	}

	if len(groups) == 0 && len(a.groupBy) == 0 {
		// A whole-table aggregate over zero rows still emits exactly
		// one row (COUNT => 0, everything else => NULL), per standard
		// SQL aggregate semantics.
		g := &groupState{
			counts:   make([]int64, len(a.aggs)),
			sums:     make([]float64, len(a.aggs)),
			mins:     make([]value.Value, len(a.aggs)),
			maxs:     make([]value.Value, len(a.aggs)),
			haveMin:  make([]bool, len(a.aggs)),
			haveMax:  make([]bool, len(a.aggs)),
			distinct: make([]map[string]struct{}, len(a.aggs)),
		}
		groups[""] = g
		order = append(order, "")
	}

	sort.Strings(order)

	a.rows = make([]value.Tuple, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := append([]value.Value(nil), g.keyValues...)
		for i, spec := range a.aggs {
			row = append(row, finalize(g, i, spec))
		}
		a.rows = append(a.rows, value.Tuple{Values: row})
	}
	return nil
}

func encodeGroupKey(vals []value.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		if v.IsNull() {
			parts[i] = "\x00N"
		} else {
			parts[i] = fmt.Sprintf("%d:%s", v.Kind(), v.String())
		}
	}
	return strings.Join(parts, "\x1f")
}

func accumulate(g *groupState, i int, spec AggSpec, tup value.Tuple, schema value.Schema) error {
	if spec.Func == AggCount && spec.Arg == nil {
		g.counts[i]++
		return nil
	}
	v, err := spec.Arg.Evaluate(tup, schema)
	if err != nil {
		return err
	}
	if v.IsNull() {
		return nil
	}
	if spec.Distinct {
		if g.distinct[i] == nil {
			g.distinct[i] = make(map[string]struct{})
		}
		key := v.String()
		if _, seen := g.distinct[i][key]; seen {
			return nil
		}
		g.distinct[i][key] = struct{}{}
	}

	g.counts[i]++
	switch spec.Func {
	case AggSum, AggAvg:
		n, err := value.CoerceTo(v, value.Float64)
		if err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
		g.sums[i] += n.Float64()
	case AggMin:
		if !g.haveMin[i] {
			g.mins[i] = v
			g.haveMin[i] = true
		} else if c, err := value.Compare(v, g.mins[i]); err == nil && c < 0 {
			g.mins[i] = v
		}
	case AggMax:
		if !g.haveMax[i] {
			g.maxs[i] = v
			g.haveMax[i] = true
		} else if c, err := value.Compare(v, g.maxs[i]); err == nil && c > 0 {
			g.maxs[i] = v
		}
	}
	return nil
}

func finalize(g *groupState, i int, spec AggSpec) value.Value {
	switch spec.Func {
	case AggCount:
		return value.NewInt64(g.counts[i])
	case AggSum:
		if g.counts[i] == 0 {
			return value.NewNull()
		}
		return value.NewFloat64(g.sums[i])
	case AggAvg:
		if g.counts[i] == 0 {
			return value.NewNull()
		}
		return value.NewFloat64(g.sums[i] / float64(g.counts[i]))
	case AggMin:
		if !g.haveMin[i] {
			return value.NewNull()
		}
		return g.mins[i]
	case AggMax:
		if !g.haveMax[i] {
			return value.NewNull()
		}
		return g.maxs[i]
	default:
		return value.NewNull()
	}
}

func (a *Aggregate) Next() (value.Tuple, bool, error) {
	if a.pos >= len(a.rows) {
		return value.Tuple{}, false, nil
	}
	row := a.rows[a.pos]
	a.pos++
	return row, true, nil
}

func (a *Aggregate) Close() error {
	a.rows = nil
	return a.child.Close()
}
