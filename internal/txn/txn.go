// Package txn implements the transaction state machine: BEGIN/COMMIT/
// ROLLBACK and the undo log DML accumulates while a transaction is
// active. It knows nothing about heap files or the catalog — applying
// an undo entry's compensation is the executor's job, since only the
// executor has the table handles needed to do it. This mirrors the
// teacher's transaction_manager state fields, with the WAL hooks it also
// carried dropped (crash recovery is out of scope; see DESIGN.md).
package txn

import (
	"sync"

	"quilldb/internal/dberr"
	"quilldb/internal/value"
)

// OpKind identifies which DML operation produced an UndoEntry.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
	OpDelete
)

// UndoEntry records enough information to reverse one row-level
// mutation. For OpInsert, reversing means removing RID. For OpDelete,
// RID is the deleted row's slot and OldTuple its contents. For OpUpdate,
// RID is the slot the updated tuple now lives at (Update may have moved
// it), OldRID is the row's slot before the update, and OldTuple is its
// contents before the update. Undo reinserts OldTuple at a fresh RID.
type UndoEntry struct {
	Kind     OpKind
	Table    string
	RID      value.RID
	OldRID   value.RID
	OldTuple value.Tuple
}

// Txn is one in-flight (or just-ended) transaction: an id and the undo
// log accumulated so far.
type Txn struct {
	ID   uint64
	undo []UndoEntry
}

// Log appends one undo entry to the transaction's log, in the order its
// mutation actually happened (Rollback replays the log in reverse).
func (t *Txn) Log(e UndoEntry) {
	t.undo = append(t.undo, e)
}

// UndoLog returns the transaction's accumulated undo entries, oldest
// first.
func (t *Txn) UndoLog() []UndoEntry {
	return t.undo
}

// Manager owns the single active transaction of one executor (one
// connection); each connection has its own Manager, so at most one
// transaction is active per connection (spec.md's concurrency model is
// statement-level locking, not multi-session MVCC).
type Manager struct {
	mu      sync.Mutex
	nextID  uint64
	current *Txn
}

func NewManager() *Manager {
	return &Manager{nextID: 1}
}

// Begin starts a new transaction. It is an error to call Begin while one
// is already active.
func (m *Manager) Begin() (*Txn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return nil, &dberr.TransactionError{Message: "a transaction is already active"}
	}
	t := &Txn{ID: m.nextID}
	m.nextID++
	m.current = t
	return t, nil
}

// Current returns the active transaction, if any.
func (m *Manager) Current() (*Txn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}

func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// End clears the active transaction (used by both Commit and Rollback,
// after the caller has done whatever commit/undo work it needed to).
func (m *Manager) End() (*Txn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, &dberr.TransactionError{Message: "no transaction is active"}
	}
	t := m.current
	m.current = nil
	return t, nil
}
