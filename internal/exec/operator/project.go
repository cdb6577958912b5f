package operator

import (
	"quilldb/internal/sql/ast"
	"quilldb/internal/value"
)

// Project evaluates a fixed list of expressions against each tuple from
// its child, producing an output tuple of exactly len(exprs) values.
type Project struct {
	child  Operator
	exprs  []ast.Expr
	schema value.Schema
}

// NewProject builds a Project operator; outSchema describes the shape
// of the projected output (names/types of each expression's result, as
// determined by the plan builder).
func NewProject(child Operator, exprs []ast.Expr, outSchema value.Schema) *Project {
	return &Project{child: child, exprs: exprs, schema: outSchema}
}

func (p *Project) Schema() value.Schema { return p.schema }

func (p *Project) Open() error { return p.child.Open() }

func (p *Project) Next() (value.Tuple, bool, error) {
	tup, ok, err := p.child.Next()
	if err != nil || !ok {
		return value.Tuple{}, false, err
	}
	childSchema := p.child.Schema()
	out := make([]value.Value, len(p.exprs))
	for i, e := range p.exprs {
		v, err := e.Evaluate(tup, childSchema)
		if err != nil {
			return value.Tuple{}, false, err
		}
		out[i] = v
	}
	return value.Tuple{Values: out}, true, nil
}

func (p *Project) Close() error { return p.child.Close() }
