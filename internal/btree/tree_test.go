package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quilldb/internal/dblog"
	"quilldb/internal/storage"
	"quilldb/internal/value"
)

func newTestTree(t *testing.T) (*Tree, *storage.Manager, string) {
	dir := t.TempDir()
	sm, err := storage.New(dir, 0, dblog.Discard())
	require.NoError(t, err)
	tree, err := Open("idx", "idx.idx", value.Int64, sm, dblog.Discard())
	require.NoError(t, err)
	return tree, sm, dir
}

func TestInsertSearchRoundTrip(t *testing.T) {
	tree, _, _ := newTestTree(t)

	require.NoError(t, tree.Insert(value.NewInt64(5), value.RID{Page: 0, Slot: 0}))
	require.NoError(t, tree.Insert(value.NewInt64(3), value.RID{Page: 0, Slot: 1}))
	require.NoError(t, tree.Insert(value.NewInt64(7), value.RID{Page: 0, Slot: 2}))

	rids, err := tree.Search(value.NewInt64(3))
	require.NoError(t, err)
	require.Len(t, rids, 1)
	assert.Equal(t, uint16(1), rids[0].Slot)
}

func TestSearchMissingKeyReturnsEmpty(t *testing.T) {
	tree, _, _ := newTestTree(t)
	require.NoError(t, tree.Insert(value.NewInt64(1), value.RID{Page: 0, Slot: 0}))

	rids, err := tree.Search(value.NewInt64(99))
	require.NoError(t, err)
	assert.Empty(t, rids)
}

func TestDuplicateKeysAllSearchable(t *testing.T) {
	tree, _, _ := newTestTree(t)
	require.NoError(t, tree.Insert(value.NewInt64(1), value.RID{Page: 0, Slot: 0}))
	require.NoError(t, tree.Insert(value.NewInt64(1), value.RID{Page: 0, Slot: 1}))

	rids, err := tree.Search(value.NewInt64(1))
	require.NoError(t, err)
	assert.Len(t, rids, 2)
}

func TestDeleteRemovesExactPair(t *testing.T) {
	tree, _, _ := newTestTree(t)
	ridA := value.RID{Page: 0, Slot: 0}
	ridB := value.RID{Page: 0, Slot: 1}
	require.NoError(t, tree.Insert(value.NewInt64(1), ridA))
	require.NoError(t, tree.Insert(value.NewInt64(1), ridB))

	ok, err := tree.Delete(value.NewInt64(1), ridA)
	require.NoError(t, err)
	assert.True(t, ok)

	rids, err := tree.Search(value.NewInt64(1))
	require.NoError(t, err)
	require.Len(t, rids, 1)
	assert.Equal(t, ridB, rids[0])
}

func TestDeleteMissingEntryReturnsFalse(t *testing.T) {
	tree, _, _ := newTestTree(t)
	require.NoError(t, tree.Insert(value.NewInt64(1), value.RID{Page: 0, Slot: 0}))

	ok, err := tree.Delete(value.NewInt64(1), value.RID{Page: 0, Slot: 99})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRangeSearchReturnsSortedWithinBounds(t *testing.T) {
	tree, _, _ := newTestTree(t)
	for _, k := range []int64{5, 1, 3, 9, 7} {
		require.NoError(t, tree.Insert(value.NewInt64(k), value.RID{Page: 0, Slot: uint16(k)}))
	}

	min := value.NewInt64(3)
	max := value.NewInt64(7)
	rids, err := tree.RangeSearch(&min, &max)
	require.NoError(t, err)

	var slots []uint16
	for _, r := range rids {
		slots = append(slots, r.Slot)
	}
	assert.Equal(t, []uint16{3, 5, 7}, slots)
}

func TestSeekIteratesAllEntriesInOrder(t *testing.T) {
	tree, _, _ := newTestTree(t)
	for _, k := range []int64{5, 1, 3} {
		require.NoError(t, tree.Insert(value.NewInt64(k), value.RID{Page: 0, Slot: uint16(k)}))
	}

	it, err := tree.Seek(nil, nil)
	require.NoError(t, err)
	defer it.Close()

	var keys []int64
	for {
		k, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, k.Int64())
	}
	assert.Equal(t, []int64{1, 3, 5}, keys)
}

func TestLeafSplitAcrossManyInserts(t *testing.T) {
	tree, _, _ := newTestTree(t)
	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Insert(value.NewInt64(int64(i)), value.RID{Page: 0, Slot: uint16(i % 65536)}))
	}

	for i := 0; i < n; i += 37 {
		rids, err := tree.Search(value.NewInt64(int64(i)))
		require.NoError(t, err)
		require.Len(t, rids, 1)
	}

	it, err := tree.Seek(nil, nil)
	require.NoError(t, err)
	defer it.Close()
	count := 0
	for {
		_, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, n, count)
}

func TestReopenPersistsRootAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	sm, err := storage.New(dir, 0, dblog.Discard())
	require.NoError(t, err)
	tree, err := Open("idx", "idx.idx", value.Int64, sm, dblog.Discard())
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		require.NoError(t, tree.Insert(value.NewInt64(int64(i)), value.RID{Page: 0, Slot: uint16(i % 65536)}))
	}
	require.NoError(t, sm.CloseAll())

	sm2, err := storage.New(dir, 0, dblog.Discard())
	require.NoError(t, err)
	reopened, err := Open("idx", "idx.idx", value.Int64, sm2, dblog.Discard())
	require.NoError(t, err)

	rids, err := reopened.Search(value.NewInt64(250))
	require.NoError(t, err)
	require.Len(t, rids, 1)
}
