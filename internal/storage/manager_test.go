package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quilldb/internal/dblog"
)

func newTestManager(t *testing.T) *Manager {
	m, err := New(t.TempDir(), 0, dblog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.CloseAll() })
	return m
}

func pageOf(b byte) []byte {
	buf := make([]byte, PageSize)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestWriteThenReadPageRoundTrip(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Open("a.dat"))

	want := pageOf(0x42)
	require.NoError(t, m.WritePage("a.dat", 0, want))

	got := make([]byte, PageSize)
	require.NoError(t, m.ReadPage("a.dat", 0, got))
	assert.Equal(t, want, got)
}

func TestReadPageBeyondEOFReturnsZeroes(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Open("a.dat"))

	got := make([]byte, PageSize)
	for i := range got {
		got[i] = 0xFF
	}
	require.NoError(t, m.ReadPage("a.dat", 7, got))
	for _, b := range got {
		assert.Equal(t, byte(0), b)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Open("a.dat"))
	require.NoError(t, m.Open("a.dat"))
}

func TestWritePageBadSizeErrors(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Open("a.dat"))
	err := m.WritePage("a.dat", 0, make([]byte, PageSize-1))
	assert.Error(t, err)
}

func TestPageCountReflectsWrites(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Open("a.dat"))
	require.NoError(t, m.WritePage("a.dat", 0, pageOf(1)))
	require.NoError(t, m.WritePage("a.dat", 2, pageOf(2)))

	n, err := m.PageCount("a.dat")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), n)
}

func TestPageCountOfMissingFileIsZero(t *testing.T) {
	m := newTestManager(t)
	n, err := m.PageCount("nope.dat")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)
}

func TestRemoveDeletesFileFromDisk(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Open("a.dat"))
	require.NoError(t, m.WritePage("a.dat", 0, pageOf(1)))

	require.NoError(t, m.Remove("a.dat"))
	n, err := m.PageCount("a.dat")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)
}

func TestSameFilenameReusesOpenHandleOnReopen(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Open("shared.dat"))
	require.NoError(t, m.Open("shared.dat"))

	require.NoError(t, m.WritePage("shared.dat", 0, pageOf(9)))
	got := make([]byte, PageSize)
	require.NoError(t, m.ReadPage("shared.dat", 0, got))
	assert.Equal(t, pageOf(9), got)
}

func TestStatsCountsReadsAndWrites(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Open("a.dat"))
	require.NoError(t, m.WritePage("a.dat", 0, pageOf(1)))

	before := m.Stats()
	buf := make([]byte, PageSize)
	require.NoError(t, m.ReadPage("a.dat", 1, buf))
	after := m.Stats()

	assert.GreaterOrEqual(t, after.Writes, before.Writes)
	assert.GreaterOrEqual(t, after.Reads+after.CacheHits, before.Reads+before.CacheHits)
}

func TestCloseAllClearsOpenFiles(t *testing.T) {
	m, err := New(t.TempDir(), 0, dblog.Discard())
	require.NoError(t, err)
	require.NoError(t, m.Open("a.dat"))
	require.NoError(t, m.CloseAll())
}
