package heap

import (
	"fmt"
	"log/slog"
	"sync"

	"quilldb/internal/dberr"
	"quilldb/internal/dblog"
	"quilldb/internal/storage"
	"quilldb/internal/value"
)

// Table is one heap-organized table: a fixed schema and its backing file
// in the Storage Manager. All mutating methods take Table's own mutex,
// since concurrent inserts into the same page must not race on its free
// -space cursor.
type Table struct {
	mu       sync.Mutex
	name     string
	filename string
	schema   value.Schema
	sm       *storage.Manager
	log      *slog.Logger
}

// Open wraps an existing (or not-yet-created) heap file in a Table
// handle. filename is relative to the Storage Manager's data directory,
// conventionally "<table>.heap".
func Open(name, filename string, schema value.Schema, sm *storage.Manager, logger *slog.Logger) *Table {
	return &Table{
		name:     name,
		filename: filename,
		schema:   schema,
		sm:       sm,
		log:      dblog.Component(logger, "heap"),
	}
}

func (t *Table) Name() string          { return t.name }
func (t *Table) Schema() value.Schema  { return t.schema }
func (t *Table) Filename() string      { return t.filename }

// Create opens the backing file, used at CREATE TABLE time so the file
// exists even before the first insert.
func (t *Table) Create() error {
	return t.sm.Open(t.filename)
}

// Drop removes the backing file entirely.
func (t *Table) Drop() error {
	return t.sm.Remove(t.filename)
}

// Insert appends tup as a new tuple, allocating into the first page with
// enough free space or a freshly appended page if none has room.
func (t *Table) Insert(tup value.Tuple) (value.RID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	payload, err := serializeTuple(t.schema, tup)
	if err != nil {
		return value.RID{}, err
	}

	numPages, err := t.sm.PageCount(t.filename)
	if err != nil {
		return value.RID{}, err
	}

	buf := make([]byte, storage.PageSize)
	for page := uint32(0); page < numPages; page++ {
		if err := t.sm.ReadPage(t.filename, page, buf); err != nil {
			return value.RID{}, err
		}
		if getNumSlots(buf) == 0 && getFreeSpaceOffset(buf) == 0 {
			// Never-initialized page (shouldn't happen once Create has
			// run, but a page that was zero-filled past EOF looks the
			// same as this), initialize it before use.
			initPage(buf)
		}
		if canFit(buf, len(payload)) {
			slotIdx, err := insertIntoPage(buf, payload)
			if err != nil {
				return value.RID{}, err
			}
			if err := t.sm.WritePage(t.filename, page, buf); err != nil {
				return value.RID{}, err
			}
			return value.RID{Page: page, Slot: slotIdx}, nil
		}
	}

	// No existing page had room: append a fresh one.
	initPage(buf)
	slotIdx, err := insertIntoPage(buf, payload)
	if err != nil {
		return value.RID{}, &dberr.InternalError{Message: "heap: payload does not fit even on an empty page", Err: err}
	}
	if err := t.sm.WritePage(t.filename, numPages, buf); err != nil {
		return value.RID{}, err
	}
	return value.RID{Page: numPages, Slot: slotIdx}, nil
}

// Get fetches the tuple at rid. ok is false if the page does not exist,
// the slot index is out of range, or the slot is tombstoned (deleted).
func (t *Table) Get(rid value.RID) (value.Tuple, bool, error) {
	buf := make([]byte, storage.PageSize)
	if err := t.sm.ReadPage(t.filename, rid.Page, buf); err != nil {
		return value.Tuple{}, false, err
	}
	payload, ok := getFromPage(buf, rid.Slot)
	if !ok {
		return value.Tuple{}, false, nil
	}
	tup, err := deserializeTuple(t.schema, payload)
	if err != nil {
		return value.Tuple{}, false, err
	}
	return tup, true, nil
}

// Remove tombstones the tuple at rid. Returns false if it was already
// absent.
func (t *Table) Remove(rid value.RID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf := make([]byte, storage.PageSize)
	if err := t.sm.ReadPage(t.filename, rid.Page, buf); err != nil {
		return false, err
	}
	if !deleteFromPage(buf, rid.Slot) {
		return false, nil
	}
	if err := t.sm.WritePage(t.filename, rid.Page, buf); err != nil {
		return false, err
	}
	return true, nil
}

// Update replaces the tuple at rid with tup. If tup's serialized size
// still fits in the original slot's allocated payload length, the update
// happens in place and the RID is unchanged; otherwise the old slot is
// tombstoned and the new tuple is inserted fresh, which may return a
// different RID — callers (e.g. index maintenance) must not assume
// Update preserves rid.
func (t *Table) Update(rid value.RID, tup value.Tuple) (value.RID, error) {
	payload, err := serializeTuple(t.schema, tup)
	if err != nil {
		return value.RID{}, err
	}

	t.mu.Lock()
	buf := make([]byte, storage.PageSize)
	if err := t.sm.ReadPage(t.filename, rid.Page, buf); err != nil {
		t.mu.Unlock()
		return value.RID{}, err
	}
	if rid.Slot >= getNumSlots(buf) {
		t.mu.Unlock()
		return value.RID{}, fmt.Errorf("heap: update: %s has no such slot", rid)
	}
	s := getSlot(buf, rid.Slot)
	if s.offset != 0 && int(s.length) >= len(payload) {
		writePayload(buf, s.offset, payload)
		setSlot(buf, rid.Slot, slot{offset: s.offset, length: s.length})
		if err := t.sm.WritePage(t.filename, rid.Page, buf); err != nil {
			t.mu.Unlock()
			return value.RID{}, err
		}
		t.mu.Unlock()
		return rid, nil
	}
	deleteFromPage(buf, rid.Slot)
	if err := t.sm.WritePage(t.filename, rid.Page, buf); err != nil {
		t.mu.Unlock()
		return value.RID{}, err
	}
	t.mu.Unlock()

	return t.Insert(tup)
}

// TupleCount scans every page and counts live (non-tombstoned) slots.
func (t *Table) TupleCount() (int, error) {
	numPages, err := t.sm.PageCount(t.filename)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, storage.PageSize)
	count := 0
	for page := uint32(0); page < numPages; page++ {
		if err := t.sm.ReadPage(t.filename, page, buf); err != nil {
			return 0, err
		}
		numSlots := getNumSlots(buf)
		for i := uint16(0); i < numSlots; i++ {
			if getSlot(buf, i).offset != 0 {
				count++
			}
		}
	}
	return count, nil
}
