package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quilldb/internal/catalog"
	"quilldb/internal/dblog"
	"quilldb/internal/lock"
	"quilldb/internal/storage"
)

func newTestExecutor(t *testing.T) *Executor {
	dir := t.TempDir()
	sm, err := storage.New(dir, 0, dblog.Discard())
	require.NoError(t, err)
	cat, err := catalog.Open(dir, "testdb", dblog.Discard())
	require.NoError(t, err)
	lm := lock.NewManager()
	return New(sm, cat, lm, dblog.Discard())
}

func mustExec(t *testing.T, ex *Executor, sql string) QueryResult {
	t.Helper()
	res := ex.Execute(sql)
	require.Empty(t, res.Error, "sql: %s", sql)
	return res
}

func TestCreateTableInsertSelect(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE users (id BIGINT PRIMARY KEY, name TEXT, age INT);")
	mustExec(t, ex, "INSERT INTO users (id, name, age) VALUES (1, 'alice', 30), (2, 'bob', 25);")

	res := mustExec(t, ex, "SELECT id, name FROM users WHERE age > 26;")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(1), res.Rows[0].At(0).Int64())
	assert.Equal(t, "alice", res.Rows[0].At(1).Text())
}

func TestCreateTableDuplicateWithoutIfNotExistsErrors(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (a INT);")
	res := ex.Execute("CREATE TABLE t (a INT);")
	assert.NotEmpty(t, res.Error)
}

func TestCreateTableIfNotExistsIsNoopOnSecondCall(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (a INT);")
	res := ex.Execute("CREATE TABLE IF NOT EXISTS t (a INT);")
	assert.Empty(t, res.Error)
}

func TestUpdateSetFromSelf(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE counters (id INT, val INT);")
	mustExec(t, ex, "INSERT INTO counters (id, val) VALUES (1, 10), (2, 20);")

	res := mustExec(t, ex, "UPDATE counters SET val = val + 1;")
	assert.Equal(t, int64(2), res.RowsAffected)

	sel := mustExec(t, ex, "SELECT val FROM counters WHERE id = 1;")
	require.Len(t, sel.Rows, 1)
	assert.Equal(t, int64(11), sel.Rows[0].At(0).Int64())
}

func TestDeleteRemovesMatchingRows(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT);")
	mustExec(t, ex, "INSERT INTO t (id) VALUES (1), (2), (3);")

	res := mustExec(t, ex, "DELETE FROM t WHERE id = 2;")
	assert.Equal(t, int64(1), res.RowsAffected)

	sel := mustExec(t, ex, "SELECT id FROM t;")
	assert.Len(t, sel.Rows, 2)
}

func TestTransactionRollbackUndoesInserts(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT);")
	mustExec(t, ex, "BEGIN;")
	mustExec(t, ex, "INSERT INTO t (id) VALUES (1);")
	mustExec(t, ex, "ROLLBACK;")

	sel := mustExec(t, ex, "SELECT id FROM t;")
	assert.Empty(t, sel.Rows)
}

func TestTransactionCommitPersistsInserts(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT);")
	mustExec(t, ex, "BEGIN;")
	mustExec(t, ex, "INSERT INTO t (id) VALUES (1);")
	mustExec(t, ex, "COMMIT;")

	sel := mustExec(t, ex, "SELECT id FROM t;")
	require.Len(t, sel.Rows, 1)
}

func TestTransactionRollbackUndoesDeleteAndUpdate(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT, val INT);")
	mustExec(t, ex, "INSERT INTO t (id, val) VALUES (1, 100);")

	mustExec(t, ex, "BEGIN;")
	mustExec(t, ex, "UPDATE t SET val = 999 WHERE id = 1;")
	mustExec(t, ex, "DELETE FROM t WHERE id = 1;")
	mustExec(t, ex, "ROLLBACK;")

	sel := mustExec(t, ex, "SELECT val FROM t WHERE id = 1;")
	require.Len(t, sel.Rows, 1)
	assert.Equal(t, int64(100), sel.Rows[0].At(0).Int64())
}

func TestAutoCommitAppliesOnEveryStatement(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT);")
	mustExec(t, ex, "INSERT INTO t (id) VALUES (1);")
	mustExec(t, ex, "INSERT INTO t (id) VALUES (2);")

	sel := mustExec(t, ex, "SELECT id FROM t;")
	assert.Len(t, sel.Rows, 2)
}

func TestStatementErrorInsideTransactionAbortsWholeTransaction(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT);")
	mustExec(t, ex, "BEGIN;")
	mustExec(t, ex, "INSERT INTO t (id) VALUES (1);")
	res := ex.Execute("INSERT INTO nosuchtable (id) VALUES (2);")
	assert.NotEmpty(t, res.Error)

	sel := mustExec(t, ex, "SELECT id FROM t;")
	assert.Empty(t, sel.Rows)
}

func TestCreateIndexThenEqualityLookupStillWorks(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT, name TEXT);")
	mustExec(t, ex, "INSERT INTO t (id, name) VALUES (1, 'a'), (2, 'b'), (3, 'c');")
	mustExec(t, ex, "CREATE INDEX idx_id ON t (id);")

	sel := mustExec(t, ex, "SELECT name FROM t WHERE id = 2;")
	require.Len(t, sel.Rows, 1)
	assert.Equal(t, "b", sel.Rows[0].At(0).Text())
}

func TestDropTableRemovesItFromFutureQueries(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT);")
	mustExec(t, ex, "DROP TABLE t;")

	res := ex.Execute("SELECT id FROM t;")
	assert.NotEmpty(t, res.Error)
}

func TestGroupByWithAggregatesAndHaving(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE sales (region TEXT, amount INT);")
	mustExec(t, ex, "INSERT INTO sales (region, amount) VALUES ('east', 10), ('east', 20), ('west', 5);")

	res := mustExec(t, ex, "SELECT region, SUM(amount) FROM sales GROUP BY region HAVING SUM(amount) > 15;")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "east", res.Rows[0].At(0).Text())
	assert.Equal(t, 30.0, res.Rows[0].At(1).Float64())
}

func TestSelectDistinctDropsDuplicateRows(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (a INT);")
	mustExec(t, ex, "INSERT INTO t (a) VALUES (1), (1), (2);")

	res := mustExec(t, ex, "SELECT DISTINCT a FROM t;")
	assert.Len(t, res.Rows, 2)
}

func TestOrderByLimitOffset(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (a INT);")
	mustExec(t, ex, "INSERT INTO t (a) VALUES (3), (1), (2);")

	res := mustExec(t, ex, "SELECT a FROM t ORDER BY a LIMIT 1 OFFSET 1;")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(2), res.Rows[0].At(0).Int64())
}

func TestSyntaxErrorDoesNotCrashExecutor(t *testing.T) {
	ex := newTestExecutor(t)
	res := ex.Execute("SELEKT * FROM t;")
	assert.NotEmpty(t, res.Error)
}

func TestBeginWhileAlreadyInTransactionErrors(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "BEGIN;")
	res := ex.Execute("BEGIN;")
	assert.NotEmpty(t, res.Error)
	mustExec(t, ex, "ROLLBACK;")
}

func TestDropIndexThenQueryFallsBackToSeqScan(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT);")
	mustExec(t, ex, "INSERT INTO t (id) VALUES (1), (2);")
	mustExec(t, ex, "CREATE INDEX idx_id ON t (id);")
	mustExec(t, ex, "DROP INDEX idx_id ON t;")

	sel := mustExec(t, ex, "SELECT id FROM t WHERE id = 2;")
	require.Len(t, sel.Rows, 1)
}
