package storage

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Stats accumulates counters for the storage manager's own I/O and page
// cache traffic, read by the REPL's \stats command and by tests asserting
// on cache behavior.
type Stats struct {
	reads       atomic.Int64
	writes      atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

func (s *Stats) addRead()      { s.reads.Add(1) }
func (s *Stats) addWrite()     { s.writes.Add(1) }
func (s *Stats) addCacheHit()  { s.cacheHits.Add(1) }
func (s *Stats) addCacheMiss() { s.cacheMisses.Add(1) }

// Snapshot is a point-in-time, immutable copy of Stats' counters.
type Snapshot struct {
	Reads       int64
	Writes      int64
	CacheHits   int64
	CacheMisses int64
}

// Stats returns a snapshot of the manager's accumulated I/O counters.
func (m *Manager) Stats() Snapshot {
	return Snapshot{
		Reads:       m.stats.reads.Load(),
		Writes:      m.stats.writes.Load(),
		CacheHits:   m.stats.cacheHits.Load(),
		CacheMisses: m.stats.cacheMisses.Load(),
	}
}

// HitRate returns the page cache's hit rate in [0,1], or 0 if no lookups
// have happened yet.
func (s Snapshot) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// String renders the snapshot the way the REPL's \stats command prints
// it: byte counts humanized, hit rate as a percentage.
func (s Snapshot) String() string {
	bytesRead := humanize.Bytes(uint64(s.Reads) * PageSize)
	bytesWritten := humanize.Bytes(uint64(s.Writes) * PageSize)
	return fmt.Sprintf(
		"pages read: %s (%s) | pages written: %s (%s) | cache hit rate: %.1f%% (%s hits, %s misses)",
		humanize.Comma(s.Reads), bytesRead,
		humanize.Comma(s.Writes), bytesWritten,
		s.HitRate()*100,
		humanize.Comma(s.CacheHits), humanize.Comma(s.CacheMisses),
	)
}
