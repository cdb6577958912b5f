// Package btree implements the secondary B+-tree index: a disk-backed
// tree of leaf and internal pages keyed by an encoded value.Value, with
// duplicate keys permitted (ties broken on RID) and sibling-linked
// leaves for ordered range scans. Structurally this follows the
// teacher's indexfile_manager/bplustree package — split/promote on
// insert, a binary-search descent — generalized
// from raw []byte keys to typed value.Value keys via a comparator
// derived from the index's declared key Kind. Delete removes an entry
// from its leaf only; underfull leaves are not borrowed into or merged.
package btree

import (
	"log/slog"
	"sync"

	"quilldb/internal/storage"
	"quilldb/internal/value"
)

// entry is one (key, RID) pair. In a leaf page this is a live index
// entry; in an internal page the RID field is unused and Child names the
// page number of the subtree holding keys >= Key (and < the next
// entry's Key, if any).
type entry struct {
	key   value.Value
	rid   value.RID // leaf entries only
	child uint32    // internal entries only
}

// node is the in-memory decoding of one page of the tree.
type node struct {
	page         uint32
	isLeaf       bool
	parent       uint32 // 0 means "no parent" (only true of the root)
	hasParent    bool
	rightSibling uint32 // leaf pages only; 0 means "no right sibling"
	hasRight     bool
	entries      []entry
	// firstChild is the internal page's leftmost child, holding keys
	// strictly less than entries[0].key. Internal nodes with N entries
	// therefore have N+1 children: firstChild, then entries[i].child.
	firstChild uint32
}

// Tree is one secondary index: a keyType-keyed B+-tree backed by its own
// file in the Storage Manager.
type Tree struct {
	mu       sync.Mutex
	name     string
	filename string
	keyType  value.Kind
	sm       *storage.Manager
	root     uint32
	log      *slog.Logger
}

func compareKeys(a, b value.Value) int {
	c, err := value.Compare(a, b)
	if err != nil {
		// Keys of a single index are always the same declared kind,
		// so Compare only errors here if both are somehow NULL, which
		// btree callers never insert (NULL keys are not indexed).
		panic("btree: " + err.Error())
	}
	return c
}

// entryLess orders leaf entries by (key, RID) so duplicate keys sort
// deterministically.
func entryLess(a, b entry) bool {
	c := compareKeys(a.key, b.key)
	if c != 0 {
		return c < 0
	}
	return a.rid.Less(b.rid)
}
