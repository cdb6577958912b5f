package executor

import (
	"quilldb/internal/catalog"
	"quilldb/internal/dberr"
	"quilldb/internal/sql/ast"
	"quilldb/internal/txn"
	"quilldb/internal/value"
)

// execInsert evaluates each VALUES row under an empty tuple context
// (rows must be constants or constant arithmetic, per spec.md §4.8),
// coerces every value to its column's declared type, inserts the row
// and maintains every index defined on the table.
func (ex *Executor) execInsert(s *ast.InsertStmt) QueryResult {
	ct, tbl, err := ex.resolveTable(s.Table)
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	schema := ct.Schema()

	positions := make([]int, schema.Len())
	for i := range positions {
		positions[i] = -1
	}
	if len(s.Columns) == 0 {
		for i := range positions {
			positions[i] = i
		}
	} else {
		for listPos, name := range s.Columns {
			col := schema.IndexOf(name)
			if col < 0 {
				return QueryResult{Error: (&dberr.NameResolutionError{Kind: "column", Name: name}).Error()}
			}
			positions[col] = listPos
		}
	}

	var affected int64
	for _, row := range s.Rows {
		values := make([]value.Value, schema.Len())
		for col := range values {
			if positions[col] < 0 || positions[col] >= len(row) {
				values[col] = value.NewNull()
				continue
			}
			v, err := row[positions[col]].Evaluate(value.Tuple{}, value.Schema{})
			if err != nil {
				return QueryResult{Error: err.Error()}
			}
			coerced, err := value.CoerceTo(v, schema.Column(col).Type)
			if err != nil {
				return QueryResult{Error: (&dberr.TypeError{Message: err.Error()}).Error()}
			}
			values[col] = coerced
		}
		tup := value.Tuple{Values: values}

		rid, err := tbl.Insert(tup)
		if err != nil {
			return QueryResult{Error: err.Error()}
		}
		if err := ex.maintainIndexesInsert(ct, tup, rid); err != nil {
			return QueryResult{Error: err.Error()}
		}
		if err := ex.acquireLock(ct.Name, rid); err != nil {
			return QueryResult{Error: err.Error()}
		}
		ex.logUndo(txn.UndoEntry{Kind: txn.OpInsert, Table: ct.Name, RID: rid})
		affected++
	}
	return QueryResult{RowsAffected: affected}
}

// execDelete is two-phase: collect every matching RID before tombstoning
// any of them, so the scan cursor driving phase 1 never observes an
// effect of phase 2 (the Halloween problem, spec.md §8 property 8).
func (ex *Executor) execDelete(s *ast.DeleteStmt) QueryResult {
	ct, tbl, err := ex.resolveTable(s.Table)
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	schema := ct.Schema()

	var where ast.Expr
	if s.Where != nil {
		where = s.Where.Clone()
		if err := bindExpr(where, schema); err != nil {
			return QueryResult{Error: err.Error()}
		}
	}

	type target struct {
		rid value.RID
		tup value.Tuple
	}
	var targets []target

	cur, err := tbl.Scan()
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	for {
		tup, rid, ok, err := cur.Next()
		if err != nil {
			cur.Close()
			return QueryResult{Error: err.Error()}
		}
		if !ok {
			break
		}
		if where != nil {
			v, err := where.Evaluate(tup, schema)
			if err != nil {
				cur.Close()
				return QueryResult{Error: err.Error()}
			}
			if v.IsNull() || !v.Bool() {
				continue
			}
		}
		targets = append(targets, target{rid: rid, tup: tup})
	}
	cur.Close()

	var affected int64
	for _, tgt := range targets {
		if err := ex.lockForWrite(ct.Name, tgt.rid); err != nil {
			return QueryResult{Error: err.Error()}
		}
		removed, err := tbl.Remove(tgt.rid)
		if err != nil {
			return QueryResult{Error: err.Error()}
		}
		if !removed {
			continue
		}
		if err := ex.maintainIndexesDelete(ct, tgt.tup, tgt.rid); err != nil {
			return QueryResult{Error: err.Error()}
		}
		ex.logUndo(txn.UndoEntry{Kind: txn.OpDelete, Table: ct.Name, RID: tgt.rid, OldTuple: tgt.tup})
		affected++
	}
	return QueryResult{RowsAffected: affected}
}

// execUpdate is two-phase for the same reason as execDelete: every new
// tuple is computed under the *old* tuple's context during phase 1, so
// `SET x = x + 1` touches each row exactly once even though the new
// value depends on the old one.
func (ex *Executor) execUpdate(s *ast.UpdateStmt) QueryResult {
	ct, tbl, err := ex.resolveTable(s.Table)
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	schema := ct.Schema()

	var where ast.Expr
	if s.Where != nil {
		where = s.Where.Clone()
		if err := bindExpr(where, schema); err != nil {
			return QueryResult{Error: err.Error()}
		}
	}

	assignPos := make([]int, len(s.Assignments))
	assignExpr := make([]ast.Expr, len(s.Assignments))
	for i, a := range s.Assignments {
		pos := schema.IndexOf(a.Column)
		if pos < 0 {
			return QueryResult{Error: (&dberr.NameResolutionError{Kind: "column", Name: a.Column}).Error()}
		}
		assignPos[i] = pos
		expr := a.Value.Clone()
		if err := bindExpr(expr, schema); err != nil {
			return QueryResult{Error: err.Error()}
		}
		assignExpr[i] = expr
	}

	type target struct {
		oldRID value.RID
		oldTup value.Tuple
		newTup value.Tuple
	}
	var targets []target

	cur, err := tbl.Scan()
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	for {
		tup, rid, ok, err := cur.Next()
		if err != nil {
			cur.Close()
			return QueryResult{Error: err.Error()}
		}
		if !ok {
			break
		}
		if where != nil {
			v, err := where.Evaluate(tup, schema)
			if err != nil {
				cur.Close()
				return QueryResult{Error: err.Error()}
			}
			if v.IsNull() || !v.Bool() {
				continue
			}
		}
		newValues := append([]value.Value(nil), tup.Values...)
		for i, pos := range assignPos {
			v, err := assignExpr[i].Evaluate(tup, schema)
			if err != nil {
				cur.Close()
				return QueryResult{Error: err.Error()}
			}
			coerced, err := value.CoerceTo(v, schema.Column(pos).Type)
			if err != nil {
				cur.Close()
				return QueryResult{Error: (&dberr.TypeError{Message: err.Error()}).Error()}
			}
			newValues[pos] = coerced
		}
		targets = append(targets, target{oldRID: rid, oldTup: tup, newTup: value.Tuple{Values: newValues}})
	}
	cur.Close()

	var affected int64
	for _, tgt := range targets {
		if err := ex.lockForWrite(ct.Name, tgt.oldRID); err != nil {
			return QueryResult{Error: err.Error()}
		}
		newRID, err := tbl.Update(tgt.oldRID, tgt.newTup)
		if err != nil {
			return QueryResult{Error: err.Error()}
		}
		if err := ex.maintainIndexesDelete(ct, tgt.oldTup, tgt.oldRID); err != nil {
			return QueryResult{Error: err.Error()}
		}
		if err := ex.maintainIndexesInsert(ct, tgt.newTup, newRID); err != nil {
			return QueryResult{Error: err.Error()}
		}
		ex.logUndo(txn.UndoEntry{Kind: txn.OpUpdate, Table: ct.Name, RID: newRID, OldRID: tgt.oldRID, OldTuple: tgt.oldTup})
		affected++
	}
	return QueryResult{RowsAffected: affected}
}

// lockForWrite acquires the per-RID exclusive lock for the active
// transaction before a DELETE/UPDATE mutates rid; failure to acquire
// aborts the statement, per spec.md §4.8.
func (ex *Executor) lockForWrite(table string, rid value.RID) error {
	return ex.acquireLock(table, rid)
}

func (ex *Executor) maintainIndexesInsert(ct *catalog.Table, tup value.Tuple, rid value.RID) error {
	for _, idx := range ct.Indexes {
		keyType := ct.Schema().Column(idx.Columns[0]).Type
		key, err := value.CoerceTo(tup.At(idx.Columns[0]), keyType)
		if err != nil {
			return err
		}
		if key.IsNull() {
			// NULL keys are not indexed: btree.compareKeys has no total
			// order for NULL, so a NULL key is simply never reachable by
			// an equality or range index scan anyway.
			continue
		}
		tree, err := ex.index(idx, keyType)
		if err != nil {
			return err
		}
		if err := tree.Insert(key, rid); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) maintainIndexesDelete(ct *catalog.Table, tup value.Tuple, rid value.RID) error {
	for _, idx := range ct.Indexes {
		keyType := ct.Schema().Column(idx.Columns[0]).Type
		key, err := value.CoerceTo(tup.At(idx.Columns[0]), keyType)
		if err != nil {
			return err
		}
		if key.IsNull() {
			continue
		}
		tree, err := ex.index(idx, keyType)
		if err != nil {
			return err
		}
		if _, err := tree.Delete(key, rid); err != nil {
			return err
		}
	}
	return nil
}
