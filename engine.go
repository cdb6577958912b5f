// Package quill is the embeddable façade over the engine: one Engine per
// data directory, wrapping the storage manager, catalog, lock manager and
// a pool of per-connection executors behind a handful of methods a host
// program actually wants to call.
package quill

import (
	"fmt"
	"log/slog"
	"sync"

	"quilldb/internal/btree"
	"quilldb/internal/catalog"
	"quilldb/internal/dberr"
	"quilldb/internal/dblog"
	"quilldb/internal/exec/executor"
	"quilldb/internal/lock"
	"quilldb/internal/storage"
	"quilldb/internal/value"
)

// Options configures Open. The zero value is a usable default: a page
// cache bounded by the storage package's default (2000 pages) and a
// logger that writes to stderr.
type Options struct {
	// DBName names a freshly created database; ignored when the data
	// directory already holds a catalog.
	DBName string
	// CacheBytes bounds the storage manager's page cache cost; 0 picks
	// the storage package's own default.
	CacheBytes int64
	// Logger receives every component's structured log output; nil
	// falls back to dblog.New().
	Logger *slog.Logger
}

// Engine owns one data directory: its storage files, system catalog and
// the shared lock manager every Conn's executor acquires row locks
// through.
type Engine struct {
	mu  sync.Mutex
	sm  *storage.Manager
	cat *catalog.Catalog
	lm  *lock.Manager
	log *slog.Logger

	conns []*Conn
}

// Open opens (creating if necessary) the database rooted at dataDir.
func Open(dataDir string, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = dblog.New()
	}
	dbName := opts.DBName
	if dbName == "" {
		dbName = "quill"
	}

	sm, err := storage.New(dataDir, opts.CacheBytes, logger)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(dataDir, dbName, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		sm:  sm,
		cat: cat,
		lm:  lock.NewManager(),
		log: dblog.Component(logger, "engine"),
	}, nil
}

// Close flushes and closes every open storage file. It does not wait for
// Conns still in use; callers are responsible for quiescing their own
// connections first.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sm.CloseAll()
}

// Connect returns a new Conn bound to this Engine, with its own
// single-active-transaction state. Conns are not safe for concurrent use
// by multiple goroutines (a connection serializes its own statements),
// but distinct Conns from the same Engine may run concurrently.
func (e *Engine) Connect() *Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := &Conn{
		ex: executor.New(e.sm, e.cat, e.lm, e.log),
	}
	e.conns = append(e.conns, c)
	return c
}

// ListTables returns the name of every table currently in the catalog,
// in no particular order.
func (e *Engine) ListTables() []string {
	tables := e.cat.ListTables()
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

// GetSchema returns the column schema of the named table.
func (e *Engine) GetSchema(table string) (value.Schema, bool) {
	t, ok := e.cat.GetTableByName(table)
	if !ok {
		return value.Schema{}, false
	}
	return t.Schema(), true
}

// Stats returns the storage manager's accumulated I/O and page-cache
// counters, the same snapshot the REPL's \stats command prints.
func (e *Engine) Stats() storage.Snapshot {
	return e.sm.Stats()
}

// Info returns the catalog's database-wide metadata (name, creation
// timestamp), read back unchanged across a close/reopen cycle.
func (e *Engine) Info() catalog.DatabaseInfo {
	return e.cat.Info()
}

// IndexEntry is one (key, rid) pair read back out of a B-tree index by
// InspectIndex.
type IndexEntry struct {
	Key value.Value
	RID value.RID
}

// InspectIndex walks every entry of the named index on table in key
// order, for debugging index-maintenance issues outside the executor.
func (e *Engine) InspectIndex(table, index string) ([]IndexEntry, error) {
	ct, ok := e.cat.GetTableByName(table)
	if !ok {
		return nil, &dberr.NameResolutionError{Kind: "table", Name: table}
	}
	var idx *catalog.Index
	for _, i := range ct.Indexes {
		if i.Name == index {
			idx = i
			break
		}
	}
	if idx == nil {
		return nil, &dberr.NameResolutionError{Kind: "index", Name: index}
	}
	keyType := ct.Schema().Column(idx.Columns[0]).Type
	tree, err := btree.Open(idx.Name, idx.Filename, keyType, e.sm, e.log)
	if err != nil {
		return nil, err
	}
	it, err := tree.Seek(nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var entries []IndexEntry
	for {
		key, rid, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		entries = append(entries, IndexEntry{Key: key, RID: rid})
	}
	return entries, nil
}

// Conn is one client's connection to an Engine: a dedicated executor
// with its own transaction and undo-log state. ExecuteSQL and the
// explicit Begin/Commit/Rollback helpers are equivalent ways of driving
// the same underlying statement dispatch.
type Conn struct {
	ex *executor.Executor
}

// ExecuteSQL parses and runs one SQL statement (including BEGIN/COMMIT/
// ROLLBACK), auto-committing it if no transaction was already active.
func (c *Conn) ExecuteSQL(sql string) executor.QueryResult {
	return c.ex.Execute(sql)
}

// Begin starts an explicit transaction; subsequent statements on this
// Conn run inside it until Commit or Rollback.
func (c *Conn) Begin() error {
	res := c.ex.Execute("BEGIN")
	if res.Error != "" {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}

// Commit ends the current explicit transaction, keeping its effects.
func (c *Conn) Commit() error {
	res := c.ex.Execute("COMMIT")
	if res.Error != "" {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}

// Rollback ends the current explicit transaction, undoing its effects.
func (c *Conn) Rollback() error {
	res := c.ex.Execute("ROLLBACK")
	if res.Error != "" {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}
