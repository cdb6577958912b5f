package operator

import (
	"quilldb/internal/btree"
	"quilldb/internal/heap"
	"quilldb/internal/value"
)

// IndexScan fetches tuples via a B+-tree index rather than a full table
// scan. The plan builder uses it (via NewIndexScanEqual) when the WHERE
// clause is an equality predicate over an indexed column. For a range
// scan, min and max are both optional (nil means unbounded on that
// side); when point is set, min holds the key and IndexScan performs a
// point lookup instead of a range seek.
type IndexScan struct {
	table *heap.Table
	index *btree.Tree
	min   *value.Value
	max   *value.Value
	point bool

	rids []value.RID
	pos  int
	iter *btree.Iterator
}

// NewIndexScanEqual returns an IndexScan that looks up exactly key.
func NewIndexScanEqual(table *heap.Table, index *btree.Tree, key value.Value) *IndexScan {
	return &IndexScan{table: table, index: index, min: &key, point: true}
}

// NewIndexScanRange returns an IndexScan over [min, max] (either bound
// may be nil).
func NewIndexScanRange(table *heap.Table, index *btree.Tree, min, max *value.Value) *IndexScan {
	return &IndexScan{table: table, index: index, min: min, max: max}
}

func (s *IndexScan) Schema() value.Schema { return s.table.Schema() }

func (s *IndexScan) Open() error {
	if s.point {
		rids, err := s.index.Search(*s.min)
		if err != nil {
			return err
		}
		s.rids = rids
		return nil
	}
	iter, err := s.index.Seek(s.min, s.max)
	if err != nil {
		return err
	}
	s.iter = iter
	return nil
}

func (s *IndexScan) Next() (value.Tuple, bool, error) {
	for {
		rid, ok, err := s.nextRID()
		if err != nil || !ok {
			return value.Tuple{}, false, err
		}
		tup, found, err := s.table.Get(rid)
		if err != nil {
			return value.Tuple{}, false, err
		}
		if !found {
			// The index entry outlived its row (e.g. a concurrent
			// delete); skip it rather than surfacing a phantom tuple.
			continue
		}
		return tup, true, nil
	}
}

func (s *IndexScan) nextRID() (value.RID, bool, error) {
	if s.point {
		if s.pos >= len(s.rids) {
			return value.RID{}, false, nil
		}
		r := s.rids[s.pos]
		s.pos++
		return r, true, nil
	}
	_, rid, ok, err := s.iter.Next()
	return rid, ok, err
}

func (s *IndexScan) Close() error {
	if s.iter != nil {
		return s.iter.Close()
	}
	return nil
}
