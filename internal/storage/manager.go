// Package storage implements the engine's page-oriented Storage Manager:
// fixed-size page I/O against per-table/per-index files, with a
// read-through cache in front of the filesystem. Every page above it
// (heap pages, B-tree nodes, the catalog header) is PageSize bytes.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"log/slog"
	"quilldb/internal/dberr"
	"quilldb/internal/dblog"
)

// PageSize is the fixed size of every page the engine reads or writes.
const PageSize = 4096

// cacheKey identifies a cached page by file and page number. The fixed-width
// hex page prefix keeps the encoding injective: two keys collide only when
// both file and page are equal.
type cacheKey = string

func makeCacheKey(file string, page uint32) cacheKey {
	return fmt.Sprintf("%08x:%s", page, file)
}

// Manager owns the open file handles for one data directory and fronts
// them with a bounded read-through page cache. All methods are safe for
// concurrent use.
type Manager struct {
	mu      sync.RWMutex
	dataDir string
	files   map[string]*os.File
	cache   *ristretto.Cache[cacheKey, []byte]
	stats   Stats
	log     *slog.Logger
}

// New creates the data directory if necessary and returns a Manager
// rooted at it. cacheMaxCost bounds the page cache's total cost in bytes
// (roughly: number of cached pages * PageSize); pass 0 for a sensible
// default of 2000 pages (~8MB).
func New(dataDir string, cacheMaxCost int64, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, &dberr.IOError{Op: "mkdir", Path: dataDir, Err: err}
	}
	if cacheMaxCost <= 0 {
		cacheMaxCost = 2000 * PageSize
	}
	cache, err := ristretto.NewCache(&ristretto.Config[cacheKey, []byte]{
		NumCounters: 10_000,
		MaxCost:     cacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: creating page cache: %w", err)
	}
	return &Manager{
		dataDir: dataDir,
		files:   make(map[string]*os.File),
		cache:   cache,
		log:     dblog.Component(logger, "storage"),
	}, nil
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dataDir, name)
}

// Open opens (creating if necessary) the file identified by name,
// relative to the manager's data directory. It is idempotent.
func (m *Manager) Open(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(name)
}

func (m *Manager) openLocked(name string) error {
	if _, ok := m.files[name]; ok {
		return nil
	}
	f, err := os.OpenFile(m.path(name), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return &dberr.IOError{Op: "open", Path: name, Err: err}
	}
	m.files[name] = f
	m.log.Debug("opened file", "name", name)
	return nil
}

// Close closes the named file's handle. Its cached pages stay in the
// page cache.
func (m *Manager) Close(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[name]
	if !ok {
		return nil
	}
	delete(m.files, name)
	if err := f.Close(); err != nil {
		return &dberr.IOError{Op: "close", Path: name, Err: err}
	}
	return nil
}

// CloseAll closes every open file and the page cache, releasing all
// resources held by the Manager.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for name, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = &dberr.IOError{Op: "close", Path: name, Err: err}
		}
		delete(m.files, name)
	}
	m.cache.Close()
	return firstErr
}

// Remove closes (if open) and deletes the named file, used by DROP TABLE
// and DROP INDEX.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[name]; ok {
		f.Close()
		delete(m.files, name)
	}
	if err := os.Remove(m.path(name)); err != nil && !os.IsNotExist(err) {
		return &dberr.IOError{Op: "remove", Path: name, Err: err}
	}
	return nil
}

// ReadPage reads page number pageNum of file name into buf, which must
// be exactly PageSize bytes. Reading a page beyond the current end of
// file yields a buffer of zero bytes rather than an error, matching the
// "pages past EOF read as zero" contract every layer above depends on.
func (m *Manager) ReadPage(name string, pageNum uint32, buf []byte) error {
	if len(buf) != PageSize {
		return &dberr.InternalError{Message: fmt.Sprintf("storage: ReadPage buffer must be %d bytes, got %d", PageSize, len(buf))}
	}
	key := makeCacheKey(name, pageNum)
	if cached, ok := m.cache.Get(key); ok {
		copy(buf, cached)
		m.stats.addCacheHit()
		return nil
	}
	m.stats.addCacheMiss()

	m.mu.RLock()
	f, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if err := m.openLocked(name); err != nil {
			m.mu.Unlock()
			return err
		}
		f = m.files[name]
		m.mu.Unlock()
	}

	for i := range buf {
		buf[i] = 0
	}
	n, err := f.ReadAt(buf, int64(pageNum)*PageSize)
	if err != nil && n == 0 {
		if isEOF(err) {
			m.stats.addRead()
			m.cachePut(key, buf)
			return nil
		}
		return &dberr.IOError{Op: "read", Path: name, Err: err}
	}
	m.stats.addRead()
	m.cachePut(key, buf)
	return nil
}

// WritePage writes buf (exactly PageSize bytes) as page number pageNum
// of file name, extending the file with implicit zero pages if pageNum
// is beyond the current end of file.
func (m *Manager) WritePage(name string, pageNum uint32, buf []byte) error {
	if len(buf) != PageSize {
		return &dberr.InternalError{Message: fmt.Sprintf("storage: WritePage buffer must be %d bytes, got %d", PageSize, len(buf))}
	}
	m.mu.RLock()
	f, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if err := m.openLocked(name); err != nil {
			m.mu.Unlock()
			return err
		}
		f = m.files[name]
		m.mu.Unlock()
	}
	if _, err := f.WriteAt(buf, int64(pageNum)*PageSize); err != nil {
		return &dberr.IOError{Op: "write", Path: name, Err: err}
	}
	m.stats.addWrite()
	key := makeCacheKey(name, pageNum)
	m.cachePut(key, buf)
	return nil
}

func (m *Manager) cachePut(key cacheKey, buf []byte) {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	m.cache.Set(key, cp, int64(len(cp)))
	// Set is buffered; wait so a later Get never sees an older copy.
	m.cache.Wait()
}

// PageCount returns the number of PageSize pages currently allocated in
// file name (0 if the file does not exist or is empty).
func (m *Manager) PageCount(name string) (uint32, error) {
	m.mu.RLock()
	f, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		info, err := os.Stat(m.path(name))
		if err != nil {
			if os.IsNotExist(err) {
				return 0, nil
			}
			return 0, &dberr.IOError{Op: "stat", Path: name, Err: err}
		}
		return uint32(info.Size() / PageSize), nil
	}
	info, err := f.Stat()
	if err != nil {
		return 0, &dberr.IOError{Op: "stat", Path: name, Err: err}
	}
	return uint32(info.Size() / PageSize), nil
}

// Sync flushes the named file's dirty OS buffers to stable storage.
func (m *Manager) Sync(name string) error {
	m.mu.RLock()
	f, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := f.Sync(); err != nil {
		return &dberr.IOError{Op: "sync", Path: name, Err: err}
	}
	return nil
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
