// Package executor drives a parsed statement to a QueryResult: it builds
// operator trees for SELECT, applies the Halloween-safe two-phase
// protocol for DELETE/UPDATE, maintains indexes and the undo log, and
// wraps every statement in an explicit-or-auto-commit transaction.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quilldb/internal/btree"
	"quilldb/internal/catalog"
	"quilldb/internal/dberr"
	"quilldb/internal/dblog"
	"quilldb/internal/heap"
	"quilldb/internal/lock"
	"quilldb/internal/sql/ast"
	"quilldb/internal/sql/parser"
	"quilldb/internal/storage"
	"quilldb/internal/txn"
	"quilldb/internal/value"
)

// QueryResult is the uniform outcome of executing one statement.
type QueryResult struct {
	Schema          value.Schema
	Rows            []value.Tuple
	RowsAffected    int64
	Error           string
	ExecutionTimeUs int64
}

// Executor runs statements against one data directory's storage,
// catalog, transaction and lock managers. It is not safe for concurrent
// use by multiple goroutines issuing overlapping statements — the
// surrounding server gives each connection its own Executor, per
// spec.md §5.
type Executor struct {
	mu  sync.Mutex
	sm  *storage.Manager
	cat *catalog.Catalog
	txm *txn.Manager
	lm  *lock.Manager
	log *slog.Logger

	tables  map[string]*heap.Table
	indexes map[uint32]*btree.Tree
}

// New builds an Executor sharing sm, cat and lm with any sibling
// executors (the Storage Manager and Catalog are the engine's shared,
// externally-serialized state); txm is private to one Executor, matching
// the single-active-transaction-per-connection model.
func New(sm *storage.Manager, cat *catalog.Catalog, lm *lock.Manager, logger *slog.Logger) *Executor {
	return &Executor{
		sm:      sm,
		cat:     cat,
		txm:     txn.NewManager(),
		lm:      lm,
		log:     dblog.Component(logger, "exec"),
		tables:  make(map[string]*heap.Table),
		indexes: make(map[uint32]*btree.Tree),
	}
}

// table returns the open heap.Table handle for a catalog table, opening
// and caching it on first use.
func (ex *Executor) table(ct *catalog.Table) (*heap.Table, error) {
	if t, ok := ex.tables[ct.Name]; ok {
		return t, nil
	}
	t := heap.Open(ct.Name, ct.HeapFile, ct.Schema(), ex.sm, ex.log)
	if err := t.Create(); err != nil {
		return nil, err
	}
	ex.tables[ct.Name] = t
	return t, nil
}

// index returns the open btree.Tree handle for a catalog index.
func (ex *Executor) index(idx *catalog.Index, keyType value.Kind) (*btree.Tree, error) {
	if t, ok := ex.indexes[idx.OID]; ok {
		return t, nil
	}
	t, err := btree.Open(idx.Name, idx.Filename, keyType, ex.sm, ex.log)
	if err != nil {
		return nil, err
	}
	ex.indexes[idx.OID] = t
	return t, nil
}

func (ex *Executor) resolveTable(name string) (*catalog.Table, *heap.Table, error) {
	ct, ok := ex.cat.GetTableByName(name)
	if !ok {
		return nil, nil, &dberr.NameResolutionError{Kind: "table", Name: name}
	}
	t, err := ex.table(ct)
	if err != nil {
		return nil, nil, err
	}
	return ct, t, nil
}

// Execute parses and runs a single SQL statement, never panicking past
// its own boundary: any internal panic is recovered and reported as
// dberr.ErrInternal, per spec.md §7.
func (ex *Executor) Execute(sql string) QueryResult {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	start := time.Now()
	result := ex.execute(sql)
	result.ExecutionTimeUs = time.Since(start).Microseconds()
	return result
}

func (ex *Executor) execute(sql string) (result QueryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = QueryResult{Error: (&dberr.InternalError{Message: fmt.Sprintf("recovered: %v", r)}).Error()}
		}
	}()

	p := parser.New(sql)
	stmt, err := p.ParseStatement()
	if err != nil {
		return QueryResult{Error: err.Error()}
	}

	if tx, ok := stmt.(*ast.TxnStmt); ok {
		return ex.execTxnControl(tx)
	}

	autoCommit := false
	if !ex.txm.IsActive() {
		if _, err := ex.txm.Begin(); err != nil {
			return QueryResult{Error: err.Error()}
		}
		autoCommit = true
	}

	res := ex.dispatch(stmt)
	if res.Error != "" {
		ex.abortCurrent()
		return res
	}
	if autoCommit {
		if err := ex.commitCurrent(); err != nil {
			res.Error = err.Error()
		}
	}
	return res
}

func (ex *Executor) dispatch(stmt ast.Statement) QueryResult {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return ex.execSelect(s)
	case *ast.InsertStmt:
		return ex.execInsert(s)
	case *ast.UpdateStmt:
		return ex.execUpdate(s)
	case *ast.DeleteStmt:
		return ex.execDelete(s)
	case *ast.CreateTableStmt:
		return ex.execCreateTable(s)
	case *ast.DropTableStmt:
		return ex.execDropTable(s)
	case *ast.CreateIndexStmt:
		return ex.execCreateIndex(s)
	case *ast.DropIndexStmt:
		return ex.execDropIndex(s)
	default:
		return QueryResult{Error: fmt.Sprintf("exec: unsupported statement type %T", stmt)}
	}
}

func (ex *Executor) execTxnControl(tx *ast.TxnStmt) QueryResult {
	switch tx.Kind {
	case ast.TxnBegin:
		if _, err := ex.txm.Begin(); err != nil {
			return QueryResult{Error: err.Error()}
		}
		return QueryResult{}
	case ast.TxnCommit:
		if err := ex.commitCurrent(); err != nil {
			return QueryResult{Error: err.Error()}
		}
		return QueryResult{}
	case ast.TxnRollback:
		if err := ex.rollbackCurrent(); err != nil {
			return QueryResult{Error: err.Error()}
		}
		return QueryResult{}
	default:
		return QueryResult{Error: "exec: unknown transaction control statement"}
	}
}

// commitCurrent ends the active transaction successfully: the undo log
// is simply discarded, since every mutation already landed durably via
// the Storage Manager as it happened (there is no separate WAL/redo
// stage to flush, per spec.md's scope).
func (ex *Executor) commitCurrent() error {
	t, err := ex.txm.End()
	if err != nil {
		return err
	}
	ex.lm.ReleaseAll(t.ID)
	return nil
}

// rollbackCurrent ends the active transaction by replaying its undo log
// in reverse, then releasing its locks. relocated tracks, across the
// whole replay, where a row an earlier (so later-undone) entry refers to
// has actually ended up: since heap slots are never reassigned (a
// tombstoned slot is never reused for a new tuple, including one
// resurrected by undo), reversing a Delete or Update re-inserts the row
// under a fresh RID rather than its original one, and any older entry
// in the same log that still names the row's previous RID must be
// redirected to that fresh one.
func (ex *Executor) rollbackCurrent() error {
	t, err := ex.txm.End()
	if err != nil {
		return err
	}
	defer ex.lm.ReleaseAll(t.ID)

	relocated := map[value.RID]value.RID{}
	log := t.UndoLog()
	for i := len(log) - 1; i >= 0; i-- {
		if err := ex.undoOne(log[i], relocated); err != nil {
			return err
		}
	}
	return nil
}

func resolveRID(relocated map[value.RID]value.RID, rid value.RID) value.RID {
	if next, ok := relocated[rid]; ok {
		return next
	}
	return rid
}

// undoOne reverses a single logged mutation, mirroring the index
// maintenance the forward DML path performs at the matching point in
// dml.go so a rolled-back transaction never leaves a B+-tree index
// pointing at a removed or stale RID.
func (ex *Executor) undoOne(e txn.UndoEntry, relocated map[value.RID]value.RID) error {
	ct, ok := ex.cat.GetTableByName(e.Table)
	if !ok {
		return &dberr.NameResolutionError{Kind: "table", Name: e.Table}
	}
	tbl, err := ex.table(ct)
	if err != nil {
		return err
	}
	switch e.Kind {
	case txn.OpInsert:
		rid := resolveRID(relocated, e.RID)
		tup, ok, err := tbl.Get(rid)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := ex.maintainIndexesDelete(ct, tup, rid); err != nil {
			return err
		}
		_, err = tbl.Remove(rid)
		return err
	case txn.OpDelete:
		newRID, err := tbl.Insert(e.OldTuple)
		if err != nil {
			return err
		}
		relocated[e.RID] = newRID
		return ex.maintainIndexesInsert(ct, e.OldTuple, newRID)
	case txn.OpUpdate:
		rid := resolveRID(relocated, e.RID)
		tup, ok, err := tbl.Get(rid)
		if err != nil {
			return err
		}
		if ok {
			if err := ex.maintainIndexesDelete(ct, tup, rid); err != nil {
				return err
			}
			if _, err := tbl.Remove(rid); err != nil {
				return err
			}
		}
		newRID, err := tbl.Insert(e.OldTuple)
		if err != nil {
			return err
		}
		relocated[e.RID] = newRID
		relocated[e.OldRID] = newRID
		return ex.maintainIndexesInsert(ct, e.OldTuple, newRID)
	default:
		return &dberr.InternalError{Message: fmt.Sprintf("exec: unknown undo op %v", e.Kind)}
	}
}

// abortCurrent rolls back the active transaction without surfacing a
// second error if rollback itself fails in a way the caller can't act
// on; the original statement error is what matters to the caller.
func (ex *Executor) abortCurrent() {
	if ex.txm.IsActive() {
		_ = ex.rollbackCurrent()
	}
}

// acquireLock takes an exclusive per-RID lock for the current
// transaction. It logs nothing; callers record the undo entry with
// logUndo once the lock is held.
func (ex *Executor) acquireLock(table string, rid value.RID) error {
	t, ok := ex.txm.Current()
	if !ok {
		return &dberr.TransactionError{Message: "exec: no active transaction to acquire a lock under"}
	}
	if err := ex.lm.Acquire(context.Background(), t.ID, table, rid); err != nil {
		return &dberr.TransactionError{Message: fmt.Sprintf("exec: failed to acquire lock on %s %s: %v", table, rid, err)}
	}
	return nil
}

func (ex *Executor) logUndo(e txn.UndoEntry) {
	if t, ok := ex.txm.Current(); ok {
		t.Log(e)
	}
}
