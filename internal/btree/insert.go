package btree

import (
	"sort"

	"quilldb/internal/storage"
	"quilldb/internal/value"
)

// Insert adds (key, rid) to the index. Duplicate keys are permitted; the
// pair is inserted at its (key, RID) sorted position within the leaf.
func (t *Tree) Insert(key value.Value, rid value.RID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.findLeaf(key)
	if err != nil {
		return err
	}
	leaf := path[len(path)-1]

	newEntry := entry{key: key, rid: rid}
	pos := sort.Search(len(leaf.entries), func(i int) bool {
		return entryLess(newEntry, leaf.entries[i])
	})
	newEntries := make([]entry, 0, len(leaf.entries)+1)
	newEntries = append(newEntries, leaf.entries[:pos]...)
	newEntries = append(newEntries, newEntry)
	newEntries = append(newEntries, leaf.entries[pos:]...)
	leaf.entries = newEntries

	if nodeSize(leaf) <= pageCapacity {
		return t.writeNode(leaf)
	}
	return t.splitLeaf(path)
}

// pageCapacity is the usable space on a page for entries, after the
// fixed header.
const pageCapacity = storage.PageSize - headerSize

// splitLeaf splits the overfull leaf at the end of path into two leaves
// and promotes the right half's first key into the parent, recursing
// upward (and growing a new root) as necessary.
func (t *Tree) splitLeaf(path []*node) error {
	leaf := path[len(path)-1]
	mid := len(leaf.entries) / 2

	rightPage, err := t.allocatePage()
	if err != nil {
		return err
	}
	right := &node{
		page:         rightPage,
		isLeaf:       true,
		entries:      append([]entry(nil), leaf.entries[mid:]...),
		rightSibling: leaf.rightSibling,
		hasRight:     leaf.hasRight,
	}
	left := leaf
	left.entries = append([]entry(nil), left.entries[:mid]...)
	left.rightSibling = right.page
	left.hasRight = true

	promotedKey := right.entries[0].key

	if err := t.writeNode(left); err != nil {
		return err
	}
	if err := t.writeNode(right); err != nil {
		return err
	}

	return t.insertIntoParent(path[:len(path)-1], left, right.page, promotedKey)
}

// insertIntoParent inserts a new (promotedKey, rightChild) pair into the
// parent of a just-split node, identified by the tail of path (path
// excludes the split node itself: path[len(path)-1], if any, is the
// direct parent). leftChild is the already-split node whose page number
// is the existing child pointer the parent must be found via. If path is
// empty, the split node was the root, and a brand-new root is created.
func (t *Tree) insertIntoParent(path []*node, leftChild *node, rightChild uint32, promotedKey value.Value) error {
	if len(path) == 0 {
		rootPage, err := t.allocatePage()
		if err != nil {
			return err
		}
		newRoot := &node{
			page:       rootPage,
			isLeaf:     false,
			firstChild: leftChild.page,
			entries:    []entry{{key: promotedKey, child: rightChild}},
		}
		leftChild.hasParent = true
		leftChild.parent = rootPage
		if err := t.writeNode(leftChild); err != nil {
			return err
		}
		rightNode, err := t.readNode(rightChild)
		if err != nil {
			return err
		}
		rightNode.hasParent = true
		rightNode.parent = rootPage
		if err := t.writeNode(rightNode); err != nil {
			return err
		}
		if err := t.writeNode(newRoot); err != nil {
			return err
		}
		t.root = rootPage
		return t.persistRoot()
	}

	parent := path[len(path)-1]
	pos := leafLowerBound(parent, promotedKey)
	newEntries := make([]entry, 0, len(parent.entries)+1)
	newEntries = append(newEntries, parent.entries[:pos]...)
	newEntries = append(newEntries, entry{key: promotedKey, child: rightChild})
	newEntries = append(newEntries, parent.entries[pos:]...)
	parent.entries = newEntries

	rightNode, err := t.readNode(rightChild)
	if err != nil {
		return err
	}
	rightNode.hasParent = true
	rightNode.parent = parent.page
	if err := t.writeNode(rightNode); err != nil {
		return err
	}

	if nodeSize(parent) <= pageCapacity {
		return t.writeNode(parent)
	}
	return t.splitInternal(path)
}

// splitInternal splits the overfull internal node at the end of path,
// promoting its median key (which, unlike a leaf split, is removed from
// both halves rather than duplicated into the right half).
func (t *Tree) splitInternal(path []*node) error {
	n := path[len(path)-1]
	mid := len(n.entries) / 2
	promotedKey := n.entries[mid].key

	rightPage, err := t.allocatePage()
	if err != nil {
		return err
	}
	right := &node{
		page:       rightPage,
		isLeaf:     false,
		firstChild: n.entries[mid].child,
		entries:    append([]entry(nil), n.entries[mid+1:]...),
	}
	left := n
	left.entries = append([]entry(nil), left.entries[:mid]...)

	if err := t.reparentChildren(right); err != nil {
		return err
	}
	if err := t.writeNode(left); err != nil {
		return err
	}
	if err := t.writeNode(right); err != nil {
		return err
	}

	return t.insertIntoParent(path[:len(path)-1], left, right.page, promotedKey)
}

// reparentChildren stamps every child of an internal node with that
// node's page as its parent, used after a split moves children into a
// freshly allocated node.
func (t *Tree) reparentChildren(n *node) error {
	children := make([]uint32, 0, len(n.entries)+1)
	children = append(children, n.firstChild)
	for _, e := range n.entries {
		children = append(children, e.child)
	}
	for _, c := range children {
		child, err := t.readNode(c)
		if err != nil {
			return err
		}
		child.hasParent = true
		child.parent = n.page
		if err := t.writeNode(child); err != nil {
			return err
		}
	}
	return nil
}
