package operator

import "quilldb/internal/value"

// Limit discards offset tuples eagerly at Open(), then yields at most
// limit further tuples via Next(). A nil limit means "unbounded" (only
// an OFFSET was given).
type Limit struct {
	child  Operator
	limit  *int64
	offset int64
	count  int64
}

func NewLimit(child Operator, limit *int64, offset int64) *Limit {
	return &Limit{child: child, limit: limit, offset: offset}
}

func (l *Limit) Schema() value.Schema { return l.child.Schema() }

func (l *Limit) Open() error {
	if err := l.child.Open(); err != nil {
		return err
	}
	for i := int64(0); i < l.offset; i++ {
		_, ok, err := l.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

func (l *Limit) Next() (value.Tuple, bool, error) {
	if l.limit != nil && l.count >= *l.limit {
		return value.Tuple{}, false, nil
	}
	tup, ok, err := l.child.Next()
	if err != nil || !ok {
		return value.Tuple{}, false, err
	}
	l.count++
	return tup, true, nil
}

func (l *Limit) Close() error { return l.child.Close() }
