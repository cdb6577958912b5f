// Package operator implements the Volcano-style pull-based execution
// operators: SeqScan, IndexScan, Filter, Project, Sort, Aggregate,
// HashJoin and Limit. Every operator follows the same lifecycle —
// Open() once before the first Next(), repeated Next() calls returning
// one tuple at a time until exhausted, then Close() — the same
// open/next/close shape the teacher's own query layer never built, so
// this package is grounded structurally on the pull-iterator pattern in
// _examples/utkarsh5026-StoreMy/pkg/iterator rather than on any teacher
// file.
package operator

import "quilldb/internal/value"

// Operator is one node of a query execution tree.
type Operator interface {
	// Open prepares the operator to produce tuples, recursively opening
	// its children. It may be called only once per operator instance.
	Open() error
	// Next returns the next output tuple, or ok=false once exhausted.
	Next() (value.Tuple, bool, error)
	// Close releases any resources (cursors, iterators, buffered rows)
	// held by this operator and its children. Idempotent.
	Close() error
	// Schema returns the shape of tuples this operator produces.
	Schema() value.Schema
}
