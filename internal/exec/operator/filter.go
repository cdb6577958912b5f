package operator

import (
	"quilldb/internal/sql/ast"
	"quilldb/internal/value"
)

// Filter passes through only the tuples from its child for which expr
// evaluates to a true boolean; NULL and false are both rejected.
type Filter struct {
	child Operator
	expr  ast.Expr
}

func NewFilter(child Operator, expr ast.Expr) *Filter {
	return &Filter{child: child, expr: expr}
}

func (f *Filter) Schema() value.Schema { return f.child.Schema() }

func (f *Filter) Open() error { return f.child.Open() }

func (f *Filter) Next() (value.Tuple, bool, error) {
	schema := f.child.Schema()
	for {
		tup, ok, err := f.child.Next()
		if err != nil || !ok {
			return value.Tuple{}, false, err
		}
		v, err := f.expr.Evaluate(tup, schema)
		if err != nil {
			return value.Tuple{}, false, err
		}
		if !v.IsNull() && v.Bool() {
			return tup, true, nil
		}
	}
}

func (f *Filter) Close() error { return f.child.Close() }
