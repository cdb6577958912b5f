package executor

import (
	"quilldb/internal/dberr"
	"quilldb/internal/sql/ast"
	"quilldb/internal/value"
)

// bindExpr resolves every ColumnRef in e to its position in schema,
// mutating the tree in place. Callers must Clone() an expression lifted
// from a parsed statement before binding it, since operators own their
// expressions exclusively and a schema's column order can differ
// between two uses of the same parsed statement (e.g. a cached plan
// reused against a table that was altered).
func bindExpr(e ast.Expr, schema value.Schema) error {
	switch n := e.(type) {
	case *ast.ColumnRef:
		pos := schema.IndexOf(n.Name)
		if pos < 0 {
			return &dberr.NameResolutionError{Kind: "column", Name: n.Name}
		}
		n.Pos = pos
		return nil
	case *ast.BinaryExpr:
		if err := bindExpr(n.Left, schema); err != nil {
			return err
		}
		return bindExpr(n.Right, schema)
	case *ast.UnaryExpr:
		return bindExpr(n.Operand, schema)
	case *ast.IsNullExpr:
		return bindExpr(n.Operand, schema)
	case *ast.InExpr:
		if err := bindExpr(n.Operand, schema); err != nil {
			return err
		}
		for _, item := range n.List {
			if err := bindExpr(item, schema); err != nil {
				return err
			}
		}
		return nil
	case *ast.FuncCall:
		for _, a := range n.Args {
			if err := bindExpr(a, schema); err != nil {
				return err
			}
		}
		return nil
	case *ast.Literal, *ast.Param:
		return nil
	default:
		return &dberr.InternalError{Message: "exec: bindExpr: unhandled expression type"}
	}
}

// isAggregateCall reports whether fc names one of the engine's aggregate
// functions.
func isAggregateCall(fc *ast.FuncCall) bool {
	switch fc.Name {
	case "COUNT", "SUM", "MIN", "MAX", "AVG":
		return true
	default:
		return false
	}
}

// containsAggregate reports whether e contains an aggregate FuncCall
// anywhere in its subtree.
func containsAggregate(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.FuncCall:
		return isAggregateCall(n)
	case *ast.BinaryExpr:
		return containsAggregate(n.Left) || containsAggregate(n.Right)
	case *ast.UnaryExpr:
		return containsAggregate(n.Operand)
	case *ast.IsNullExpr:
		return containsAggregate(n.Operand)
	case *ast.InExpr:
		if containsAggregate(n.Operand) {
			return true
		}
		for _, item := range n.List {
			if containsAggregate(item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// inferType makes a best-effort static guess at the result type of e,
// used only to label result-set columns for display; the runtime Value
// produced by Evaluate always carries its own authoritative Kind.
func inferType(e ast.Expr, schema value.Schema) value.Kind {
	switch n := e.(type) {
	case *ast.Literal:
		return n.Val.Kind()
	case *ast.ColumnRef:
		if n.Pos >= 0 && n.Pos < schema.Len() {
			return schema.Column(n.Pos).Type
		}
		return value.Null
	case *ast.BinaryExpr:
		switch n.Op {
		case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe, ast.OpAnd, ast.OpOr, ast.OpLike:
			return value.Bool
		case ast.OpConcat:
			return value.Text
		default:
			l, r := inferType(n.Left, schema), inferType(n.Right, schema)
			return widestNumeric(l, r)
		}
	case *ast.UnaryExpr:
		if n.Op == ast.OpNot {
			return value.Bool
		}
		return inferType(n.Operand, schema)
	case *ast.IsNullExpr:
		return value.Bool
	case *ast.InExpr:
		return value.Bool
	case *ast.FuncCall:
		switch n.Name {
		case "COUNT":
			return value.Int64
		case "SUM", "AVG":
			return value.Float64
		case "MIN", "MAX", "ABS":
			if len(n.Args) == 1 {
				return inferType(n.Args[0], schema)
			}
			return value.Null
		case "UPPER", "LOWER":
			return value.Text
		}
		return value.Null
	default:
		return value.Null
	}
}

func widestNumeric(a, b value.Kind) value.Kind {
	if a == value.Float64 || b == value.Float64 {
		return value.Float64
	}
	if a == value.Int64 || b == value.Int64 {
		return value.Int64
	}
	if a == value.Int32 && b == value.Int32 {
		return value.Int32
	}
	return a
}
