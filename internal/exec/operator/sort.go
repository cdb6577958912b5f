package operator

import (
	"sort"

	"quilldb/internal/sql/ast"
	"quilldb/internal/value"
)

// Sort is a blocking operator: it drains its child entirely at Open(),
// orders the buffered tuples by the given keys, and streams them back
// out on Next(). NULLs sort before every non-null value in either
// direction, matching the ordering used throughout the rest of the
// engine (aggregate group ordering, index key ordering).
type Sort struct {
	child Operator
	keys  []ast.Expr
	desc  []bool

	rows []value.Tuple
	pos  int
}

func NewSort(child Operator, keys []ast.Expr, desc []bool) *Sort {
	return &Sort{child: child, keys: keys, desc: desc}
}

func (s *Sort) Schema() value.Schema { return s.child.Schema() }

func (s *Sort) Open() error {
	if err := s.child.Open(); err != nil {
		return err
	}
	schema := s.child.Schema()
	for {
		tup, ok, err := s.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		s.rows = append(s.rows, tup)
	}

	keyVals := make([][]value.Value, len(s.rows))
	for i, row := range s.rows {
		vals := make([]value.Value, len(s.keys))
		for j, k := range s.keys {
			v, err := k.Evaluate(row, schema)
			if err != nil {
				return err
			}
			vals[j] = v
		}
		keyVals[i] = vals
	}

	order := make([]int, len(s.rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lessKeys(keyVals[order[a]], keyVals[order[b]], s.desc)
	})

	sorted := make([]value.Tuple, len(s.rows))
	for i, idx := range order {
		sorted[i] = s.rows[idx]
	}
	s.rows = sorted
	return nil
}

func lessKeys(a, b []value.Value, desc []bool) bool {
	for i := range a {
		c := compareNullable(a[i], b[i])
		if desc[i] && !a[i].IsNull() && !b[i].IsNull() {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return false
}

// compareNullable orders NULL before every non-null value, and falls
// back to value.Compare for two non-null operands of compatible kind.
func compareNullable(a, b value.Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}
	c, err := value.Compare(a, b)
	if err != nil {
		// Incomparable kinds (shouldn't occur for a well-typed ORDER
		// BY key) sort equal rather than propagating the error through
		// sort.SliceStable's comparator signature.
		return 0
	}
	return c
}

func (s *Sort) Next() (value.Tuple, bool, error) {
	if s.pos >= len(s.rows) {
		return value.Tuple{}, false, nil
	}
	tup := s.rows[s.pos]
	s.pos++
	return tup, true, nil
}

func (s *Sort) Close() error {
	s.rows = nil
	return s.child.Close()
}
