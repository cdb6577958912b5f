package operator

import (
	"github.com/cespare/xxhash/v2"

	"quilldb/internal/sql/ast"
	"quilldb/internal/value"
)

// HashJoin implements an inner equi-join: it drains the (expected
// smaller) right child into an in-memory hash table keyed by xxhash of
// the join key's canonical string form, then probes it once per left
// row. The hash is a bucketing hint only — every probe re-checks
// equality against the real key, so a collision never produces a wrong
// match, only a slightly longer bucket to scan.
type HashJoin struct {
	left, right       Operator
	leftKey, rightKey ast.Expr
	schema            value.Schema

	buckets map[uint64][]bucketEntry

	leftSchema value.Schema
	curLeft    value.Tuple
	haveLeft   bool
	matches    []value.Tuple
	matchPos   int
}

type bucketEntry struct {
	key value.Value
	row value.Tuple
}

func NewHashJoin(left, right Operator, leftKey, rightKey ast.Expr) *HashJoin {
	return &HashJoin{
		left: left, right: right,
		leftKey: leftKey, rightKey: rightKey,
		schema: left.Schema().Concat(right.Schema()),
	}
}

func (h *HashJoin) Schema() value.Schema { return h.schema }

func (h *HashJoin) Open() error {
	if err := h.right.Open(); err != nil {
		return err
	}
	rightSchema := h.right.Schema()
	h.buckets = make(map[uint64][]bucketEntry)
	for {
		row, ok, err := h.right.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		k, err := h.rightKey.Evaluate(row, rightSchema)
		if err != nil {
			return err
		}
		if k.IsNull() {
			continue // NULL never joins with anything, per SQL equality semantics
		}
		hash := xxhash.Sum64String(k.String())
		h.buckets[hash] = append(h.buckets[hash], bucketEntry{key: k, row: row})
	}
	if err := h.right.Close(); err != nil {
		return err
	}

	if err := h.left.Open(); err != nil {
		return err
	}
	h.leftSchema = h.left.Schema()
	return nil
}

func (h *HashJoin) Next() (value.Tuple, bool, error) {
	for {
		if h.matchPos < len(h.matches) {
			m := h.matches[h.matchPos]
			h.matchPos++
			return h.curLeft.Concat(m), true, nil
		}

		row, ok, err := h.left.Next()
		if err != nil || !ok {
			return value.Tuple{}, false, err
		}
		k, err := h.leftKey.Evaluate(row, h.leftSchema)
		if err != nil {
			return value.Tuple{}, false, err
		}
		h.curLeft = row
		h.matches = nil
		h.matchPos = 0
		if k.IsNull() {
			continue
		}
		hash := xxhash.Sum64String(k.String())
		for _, e := range h.buckets[hash] {
			if e.key.Equal(k) {
				h.matches = append(h.matches, e.row)
			}
		}
	}
}

func (h *HashJoin) Close() error {
	h.buckets = nil
	return h.left.Close()
}
