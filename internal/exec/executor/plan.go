package executor

import (
	"fmt"
	"strings"

	"quilldb/internal/dberr"
	"quilldb/internal/exec/operator"
	"quilldb/internal/sql/ast"
	"quilldb/internal/value"
)

// execSelect builds and drains the operator tree for a SELECT,
// returning every row pulled to exhaustion together with the root
// operator's output schema.
func (ex *Executor) execSelect(s *ast.SelectStmt) QueryResult {
	op, schema, err := ex.planSelect(s)
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	if err := op.Open(); err != nil {
		return QueryResult{Error: err.Error()}
	}
	defer op.Close()

	var rows []value.Tuple
	for {
		tup, ok, err := op.Next()
		if err != nil {
			return QueryResult{Error: err.Error()}
		}
		if !ok {
			break
		}
		rows = append(rows, tup)
	}

	if s.Distinct {
		rows = dedupeRows(rows)
	}

	return QueryResult{Schema: schema, Rows: rows, RowsAffected: int64(len(rows))}
}

func dedupeRows(rows []value.Tuple) []value.Tuple {
	seen := make(map[string]struct{}, len(rows))
	out := make([]value.Tuple, 0, len(rows))
	for _, r := range rows {
		key := rowKey(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func rowKey(t value.Tuple) string {
	parts := make([]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		v := t.At(i)
		if v.IsNull() {
			parts[i] = "\x00N"
		} else {
			parts[i] = fmt.Sprintf("%d:%s", v.Kind(), v.String())
		}
	}
	return strings.Join(parts, "\x1f")
}

// planSelect builds the operator tree in the order spec.md §4.8
// prescribes: scan, filter, aggregate, sort, project, limit.
func (ex *Executor) planSelect(s *ast.SelectStmt) (operator.Operator, value.Schema, error) {
	ct, tbl, err := ex.resolveTable(s.Table)
	if err != nil {
		return nil, value.Schema{}, err
	}
	baseSchema := ct.Schema()

	// Star items expand against the base table schema before anything
	// else touches the select list.
	items := expandStars(s.Columns, baseSchema)

	var where ast.Expr
	if s.Where != nil {
		where = s.Where.Clone()
		if err := bindExpr(where, baseSchema); err != nil {
			return nil, value.Schema{}, err
		}
	}

	var op operator.Operator
	if eqCol, eqLit, ok := equalityIndexable(where); ok {
		if idx, found := ct.FindIndexOnColumn(eqCol); found {
			keyType := baseSchema.Column(eqCol).Type
			key, err := value.CoerceTo(eqLit, keyType)
			if err == nil {
				tree, err := ex.index(idx, keyType)
				if err != nil {
					return nil, value.Schema{}, err
				}
				op = operator.NewIndexScanEqual(tbl, tree, key)
				where = nil // the index lookup already satisfies the predicate exactly
			}
		}
	}
	if op == nil {
		op = operator.NewSeqScan(tbl)
	}
	if where != nil {
		op = operator.NewFilter(op, where)
	}

	groupBy := make([]ast.Expr, len(s.GroupBy))
	for i, g := range s.GroupBy {
		groupBy[i] = g.Clone()
		if err := bindExpr(groupBy[i], baseSchema); err != nil {
			return nil, value.Schema{}, err
		}
	}

	needsAggregate := len(groupBy) > 0
	for _, item := range items {
		if !item.Star && containsAggregate(item.Expr) {
			needsAggregate = true
		}
	}
	if s.Having != nil && containsAggregate(s.Having) {
		needsAggregate = true
	}

	currentSchema := baseSchema
	var projectExprs []ast.Expr
	var having ast.Expr

	if needsAggregate {
		groupKeys := make(map[string]int, len(groupBy))
		for i, g := range groupBy {
			groupKeys[g.String()] = i
		}
		aggKeys := make(map[string]int)
		var aggSpecs []operator.AggSpec
		var aggCols []value.Column

		resolveAgg := func(fc *ast.FuncCall) (int, error) {
			key := aggKeyString(fc)
			if pos, ok := aggKeys[key]; ok {
				return pos, nil
			}
			spec, col, err := buildAggSpec(fc, baseSchema)
			if err != nil {
				return 0, err
			}
			pos := len(groupBy) + len(aggSpecs)
			aggKeys[key] = pos
			aggSpecs = append(aggSpecs, spec)
			aggCols = append(aggCols, col)
			return pos, nil
		}

		rewritten := make([]ast.Expr, len(items))
		for i, item := range items {
			e := item.Expr.Clone()
			if err := bindExpr(e, baseSchema); err != nil {
				// A bare column that isn't part of GROUP BY and isn't
				// inside an aggregate call is invalid once grouping is
				// in effect; still try the groupKeys rewrite below,
				// which handles the valid "grouped column" case without
				// needing bindExpr's schema-position lookup to succeed.
				if _, isCol := e.(*ast.ColumnRef); !isCol {
					return nil, value.Schema{}, err
				}
			}
			rewritten[i], err = rewriteAggregateRefs(e, groupKeys, resolveAgg)
			if err != nil {
				return nil, value.Schema{}, err
			}
		}
		projectExprs = rewritten

		if s.Having != nil {
			h := s.Having.Clone()
			if err := bindExpr(h, baseSchema); err != nil {
				if _, isCol := h.(*ast.ColumnRef); !isCol {
					return nil, value.Schema{}, err
				}
			}
			having, err = rewriteAggregateRefs(h, groupKeys, resolveAgg)
			if err != nil {
				return nil, value.Schema{}, err
			}
		}

		groupCols := make([]value.Column, len(groupBy))
		for i, g := range groupBy {
			groupCols[i] = value.Column{Name: groupByLabel(s.GroupBy[i]), Type: inferType(g, baseSchema)}
		}
		aggSchema := value.Schema{Columns: append(groupCols, aggCols...)}

		op = operator.NewAggregate(op, groupBy, aggSpecs, aggSchema)
		currentSchema = aggSchema

		if having != nil {
			op = operator.NewFilter(op, having)
		}
	} else {
		projectExprs = make([]ast.Expr, len(items))
		for i, item := range items {
			e := item.Expr.Clone()
			if err := bindExpr(e, baseSchema); err != nil {
				return nil, value.Schema{}, err
			}
			projectExprs[i] = e
		}
	}

	if len(s.OrderBy) > 0 {
		keys := make([]ast.Expr, len(s.OrderBy))
		desc := make([]bool, len(s.OrderBy))
		for i, ob := range s.OrderBy {
			e := ob.Expr.Clone()
			if needsAggregate {
				boundAgg, err := rebindOrderByForAggregate(e, currentSchema)
				if err != nil {
					return nil, value.Schema{}, err
				}
				keys[i] = boundAgg
			} else {
				if err := bindExpr(e, currentSchema); err != nil {
					return nil, value.Schema{}, err
				}
				keys[i] = e
			}
			desc[i] = ob.Desc
		}
		op = operator.NewSort(op, keys, desc)
	}

	outCols := make([]value.Column, len(items))
	for i, item := range items {
		name := item.Alias
		if name == "" {
			if cr, ok := item.Expr.(*ast.ColumnRef); ok {
				name = cr.Name
			} else {
				name = item.Expr.String()
			}
		}
		outCols[i] = value.Column{Name: name, Type: inferType(projectExprs[i], currentSchema)}
	}
	outSchema := value.Schema{Columns: outCols}
	op = operator.NewProject(op, projectExprs, outSchema)

	if s.Limit != nil || s.Offset != nil {
		var offset int64
		if s.Offset != nil {
			offset = *s.Offset
		}
		op = operator.NewLimit(op, s.Limit, offset)
	}

	return op, outSchema, nil
}

// expandStars replaces every `*` item with one ColumnRef item per base
// -schema column, in order.
func expandStars(items []ast.SelectItem, schema value.Schema) []ast.SelectItem {
	var hasStar bool
	for _, it := range items {
		if it.Star {
			hasStar = true
			break
		}
	}
	if !hasStar {
		return items
	}
	out := make([]ast.SelectItem, 0, len(items)+schema.Len())
	for _, it := range items {
		if !it.Star {
			out = append(out, it)
			continue
		}
		for i, c := range schema.Columns {
			out = append(out, ast.SelectItem{Expr: &ast.ColumnRef{Name: c.Name, Pos: i}})
		}
	}
	return out
}

// equalityIndexable recognizes the one WHERE shape the plan builder
// optimizes into an IndexScan: `column = literal` or `literal = column`,
// with no other conjuncts. Anything more elaborate (ANDed conditions,
// ranges, non-equality operators) falls back to a full SeqScan+Filter.
// equalityIndexable reports whether where is a single `column = literal`
// (or `literal = column`) predicate suitable for an index probe. A NULL
// literal is deliberately rejected: `a = NULL` is never true under SQL's
// three-valued logic (no row ever matches), and a NULL key is not
// reachable in the index anyway, since NULL keys are never inserted into
// it — see maintainIndexesInsert.
func equalityIndexable(where ast.Expr) (col int, lit value.Value, ok bool) {
	be, isBin := where.(*ast.BinaryExpr)
	if !isBin || be.Op != ast.OpEq {
		return 0, value.Value{}, false
	}
	if c, isCol := be.Left.(*ast.ColumnRef); isCol {
		if l, isLit := be.Right.(*ast.Literal); isLit && !l.Val.IsNull() {
			return c.Pos, l.Val, true
		}
	}
	if c, isCol := be.Right.(*ast.ColumnRef); isCol {
		if l, isLit := be.Left.(*ast.Literal); isLit && !l.Val.IsNull() {
			return c.Pos, l.Val, true
		}
	}
	return 0, value.Value{}, false
}

func aggKeyString(fc *ast.FuncCall) string {
	if fc.Star {
		return fc.Name + "(*)"
	}
	arg := ""
	if len(fc.Args) == 1 {
		arg = fc.Args[0].String()
	}
	return fmt.Sprintf("%s:%v:%s", fc.Name, fc.Distinct, arg)
}

func buildAggSpec(fc *ast.FuncCall, schema value.Schema) (operator.AggSpec, value.Column, error) {
	var af operator.AggFunc
	switch fc.Name {
	case "COUNT":
		af = operator.AggCount
	case "SUM":
		af = operator.AggSum
	case "MIN":
		af = operator.AggMin
	case "MAX":
		af = operator.AggMax
	case "AVG":
		af = operator.AggAvg
	default:
		return operator.AggSpec{}, value.Column{}, fmt.Errorf("exec: %q is not an aggregate function", fc.Name)
	}

	var arg ast.Expr
	if !fc.Star {
		if len(fc.Args) != 1 {
			return operator.AggSpec{}, value.Column{}, fmt.Errorf("exec: %s takes exactly one argument", fc.Name)
		}
		arg = fc.Args[0].Clone()
		if err := bindExpr(arg, schema); err != nil {
			return operator.AggSpec{}, value.Column{}, err
		}
	}

	colType := value.Int64
	switch af {
	case operator.AggSum, operator.AggAvg:
		colType = value.Float64
	case operator.AggMin, operator.AggMax:
		if arg != nil {
			colType = inferType(arg, schema)
		}
	}
	return operator.AggSpec{Func: af, Arg: arg, Distinct: fc.Distinct}, value.Column{Name: fc.String(), Type: colType}, nil
}

// rewriteAggregateRefs walks e, replacing every aggregate FuncCall with
// a ColumnRef into the Aggregate operator's output (via resolveAgg) and
// every bare column reference that matches a GROUP BY expression with a
// ColumnRef into that group key's position.
func rewriteAggregateRefs(e ast.Expr, groupKeys map[string]int, resolveAgg func(*ast.FuncCall) (int, error)) (ast.Expr, error) {
	if pos, ok := groupKeys[e.String()]; ok {
		return &ast.ColumnRef{Name: e.String(), Pos: pos}, nil
	}
	switch n := e.(type) {
	case *ast.FuncCall:
		if isAggregateCall(n) {
			pos, err := resolveAgg(n)
			if err != nil {
				return nil, err
			}
			return &ast.ColumnRef{Name: n.String(), Pos: pos}, nil
		}
		return nil, fmt.Errorf("exec: non-aggregate function %q in a grouped query", n.Name)
	case *ast.BinaryExpr:
		l, err := rewriteAggregateRefs(n.Left, groupKeys, resolveAgg)
		if err != nil {
			return nil, err
		}
		r, err := rewriteAggregateRefs(n.Right, groupKeys, resolveAgg)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: n.Op, Left: l, Right: r}, nil
	case *ast.UnaryExpr:
		operand, err := rewriteAggregateRefs(n.Operand, groupKeys, resolveAgg)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: n.Op, Operand: operand}, nil
	case *ast.IsNullExpr:
		operand, err := rewriteAggregateRefs(n.Operand, groupKeys, resolveAgg)
		if err != nil {
			return nil, err
		}
		return &ast.IsNullExpr{Operand: operand, Negate: n.Negate}, nil
	case *ast.ColumnRef:
		return nil, fmt.Errorf("exec: column %q must appear in GROUP BY or inside an aggregate function", n.Name)
	default:
		return e, nil
	}
}

// rebindOrderByForAggregate resolves an ORDER BY key against the
// Aggregate operator's output schema the same way a SELECT-list
// expression is rewritten: a bare alias/column name or an aggregate
// call must match one of the aggregate schema's columns by label.
func rebindOrderByForAggregate(e ast.Expr, aggSchema value.Schema) (ast.Expr, error) {
	label := e.String()
	if col, ok := matchAggColumn(e, aggSchema); ok {
		return &ast.ColumnRef{Name: label, Pos: col}, nil
	}
	return nil, &dberr.NameResolutionError{Kind: "column", Name: label}
}

func matchAggColumn(e ast.Expr, schema value.Schema) (int, bool) {
	label := e.String()
	for i, c := range schema.Columns {
		if c.Name == label {
			return i, true
		}
	}
	if cr, ok := e.(*ast.ColumnRef); ok {
		return schema.IndexOf(cr.Name), schema.IndexOf(cr.Name) >= 0
	}
	return 0, false
}

// groupByLabel renders a GROUP BY expression's display name, preferring
// a bare column's own name over its full expression string.
func groupByLabel(e ast.Expr) string {
	if cr, ok := e.(*ast.ColumnRef); ok {
		return cr.Name
	}
	return e.String()
}
