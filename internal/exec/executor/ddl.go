package executor

import (
	"errors"

	"quilldb/internal/catalog"
	"quilldb/internal/dberr"
	"quilldb/internal/sql/ast"
	"quilldb/internal/value"
)

func (ex *Executor) execCreateTable(s *ast.CreateTableStmt) QueryResult {
	if _, ok := ex.cat.GetTableByName(s.Table); ok {
		if s.IfNotExists {
			return QueryResult{}
		}
		return QueryResult{Error: (&dberr.ConstraintError{Constraint: "table_exists", Message: "table " + s.Table + " already exists"}).Error()}
	}

	cols := make([]catalog.Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = catalog.Column{
			Name:       c.Name,
			Type:       c.Type,
			Len:        c.Len,
			PrimaryKey: c.PrimaryKey,
			NotNull:    c.NotNull,
			Unique:     c.Unique,
		}
	}

	ct, err := ex.cat.CreateTable(s.Table, cols)
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	if _, err := ex.table(ct); err != nil {
		// Roll back the catalog entry: CREATE TABLE must be all-or-nothing.
		if _, dropErr := ex.cat.DropTable(ct.OID); dropErr != nil {
			ex.log.Error("failed to roll back catalog entry after heap file creation failure", "table", s.Table, "error", dropErr)
		}
		return QueryResult{Error: err.Error()}
	}
	return QueryResult{}
}

func (ex *Executor) execDropTable(s *ast.DropTableStmt) QueryResult {
	ct, ok := ex.cat.GetTableByName(s.Table)
	if !ok {
		if s.IfExists {
			return QueryResult{}
		}
		return QueryResult{Error: (&dberr.NameResolutionError{Kind: "table", Name: s.Table}).Error()}
	}
	for _, idx := range ct.Indexes {
		if t, ok := ex.indexes[idx.OID]; ok {
			if err := t.Drop(); err != nil && !errors.Is(err, dberr.ErrIO) {
				return QueryResult{Error: err.Error()}
			}
			delete(ex.indexes, idx.OID)
		}
	}
	if t, ok := ex.tables[ct.Name]; ok {
		if err := t.Drop(); err != nil {
			return QueryResult{Error: err.Error()}
		}
		delete(ex.tables, ct.Name)
	}
	if _, err := ex.cat.DropTable(ct.OID); err != nil {
		return QueryResult{Error: err.Error()}
	}
	return QueryResult{}
}

func (ex *Executor) execCreateIndex(s *ast.CreateIndexStmt) QueryResult {
	ct, ok := ex.cat.GetTableByName(s.Table)
	if !ok {
		return QueryResult{Error: (&dberr.NameResolutionError{Kind: "table", Name: s.Table}).Error()}
	}
	positions := make([]int, len(s.Columns))
	for i, name := range s.Columns {
		pos := ct.Schema().IndexOf(name)
		if pos < 0 {
			return QueryResult{Error: (&dberr.NameResolutionError{Kind: "column", Name: name}).Error()}
		}
		positions[i] = pos
	}

	idx, err := ex.cat.CreateIndex(s.Index, ct.OID, positions, catalog.BTreeIndex, s.Unique, false)
	if err != nil {
		return QueryResult{Error: err.Error()}
	}

	keyType := ct.Schema().Column(positions[0]).Type
	tree, err := ex.index(idx, keyType)
	if err != nil {
		if _, dropErr := ex.cat.DropIndex(ct.OID, idx.Name); dropErr != nil {
			ex.log.Error("failed to roll back catalog entry after index file creation failure", "index", s.Index, "error", dropErr)
		}
		return QueryResult{Error: err.Error()}
	}

	tbl, err := ex.table(ct)
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	cur, err := tbl.Scan()
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	defer cur.Close()
	for {
		tup, rid, ok, err := cur.Next()
		if err != nil {
			return QueryResult{Error: err.Error()}
		}
		if !ok {
			break
		}
		key, err := value.CoerceTo(tup.At(positions[0]), keyType)
		if err != nil {
			return QueryResult{Error: err.Error()}
		}
		if key.IsNull() {
			continue
		}
		if err := tree.Insert(key, rid); err != nil {
			return QueryResult{Error: err.Error()}
		}
	}
	return QueryResult{}
}

func (ex *Executor) execDropIndex(s *ast.DropIndexStmt) QueryResult {
	ct, ok := ex.cat.GetTableByName(s.Table)
	if !ok {
		return QueryResult{Error: (&dberr.NameResolutionError{Kind: "table", Name: s.Table}).Error()}
	}
	idx, err := ex.cat.DropIndex(ct.OID, s.Index)
	if err != nil {
		return QueryResult{Error: err.Error()}
	}
	if t, ok := ex.indexes[idx.OID]; ok {
		if err := t.Drop(); err != nil {
			return QueryResult{Error: err.Error()}
		}
		delete(ex.indexes, idx.OID)
	}
	return QueryResult{}
}
