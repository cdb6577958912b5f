package heap

import (
	"quilldb/internal/storage"
	"quilldb/internal/value"
)

// Cursor performs a full, in-page-order scan of a Table, skipping
// tombstoned slots. It holds no lock across calls, so it reads a
// snapshot of whatever page is currently on disk each time it advances —
// concurrent mutation during a scan is not guaranteed to be consistent,
// matching the heap table's lack of MVCC.
type Cursor struct {
	table    *Table
	buf      []byte
	page     uint32
	slot     uint16
	numPages uint32
	loaded   bool
}

// Scan returns a Cursor positioned before the first tuple of the table.
func (t *Table) Scan() (*Cursor, error) {
	numPages, err := t.sm.PageCount(t.filename)
	if err != nil {
		return nil, err
	}
	return &Cursor{
		table:    t,
		buf:      make([]byte, storage.PageSize),
		numPages: numPages,
	}, nil
}

// Next advances the cursor to the next live tuple. ok is false once the
// scan is exhausted.
func (c *Cursor) Next() (value.Tuple, value.RID, bool, error) {
	for {
		if !c.loaded {
			if c.page >= c.numPages {
				return value.Tuple{}, value.RID{}, false, nil
			}
			if err := c.table.sm.ReadPage(c.table.filename, c.page, c.buf); err != nil {
				return value.Tuple{}, value.RID{}, false, err
			}
			c.loaded = true
			c.slot = 0
		}
		numSlots := getNumSlots(c.buf)
		if c.slot >= numSlots {
			c.page++
			c.loaded = false
			continue
		}
		slotIdx := c.slot
		c.slot++
		payload, ok := getFromPage(c.buf, slotIdx)
		if !ok {
			continue
		}
		tup, err := deserializeTuple(c.table.schema, payload)
		if err != nil {
			return value.Tuple{}, value.RID{}, false, err
		}
		return tup, value.RID{Page: c.page, Slot: slotIdx}, true, nil
	}
}

// Close is a no-op for heap cursors (no resources beyond a byte buffer
// to release) but is provided so Cursor satisfies the same lifecycle
// shape as the operator pipeline's iterators.
func (c *Cursor) Close() error { return nil }
