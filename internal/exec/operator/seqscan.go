package operator

import (
	"quilldb/internal/heap"
	"quilldb/internal/value"
)

// SeqScan reads every live tuple of a heap table, in whatever physical
// order the table's cursor visits pages and slots.
type SeqScan struct {
	table  *heap.Table
	cursor *heap.Cursor
}

func NewSeqScan(table *heap.Table) *SeqScan {
	return &SeqScan{table: table}
}

func (s *SeqScan) Schema() value.Schema { return s.table.Schema() }

func (s *SeqScan) Open() error {
	cur, err := s.table.Scan()
	if err != nil {
		return err
	}
	s.cursor = cur
	return nil
}

func (s *SeqScan) Next() (value.Tuple, bool, error) {
	tup, _, ok, err := s.cursor.Next()
	return tup, ok, err
}

func (s *SeqScan) Close() error {
	if s.cursor == nil {
		return nil
	}
	return s.cursor.Close()
}
