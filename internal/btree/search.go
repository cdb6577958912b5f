package btree

import "quilldb/internal/value"

// Search returns every RID indexed under key, in RID order. Because a
// split can push entries sharing the same key across a leaf boundary,
// Search walks right-sibling leaves for as long as they keep yielding
// entries equal to key.
func (t *Tree) Search(key value.Value) ([]value.RID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.findLeaf(key)
	if err != nil {
		return nil, err
	}
	leaf := path[len(path)-1]
	var rids []value.RID
	pos := leafLowerBound(leaf, key)
	for {
		for pos < len(leaf.entries) {
			if !leaf.entries[pos].key.Equal(key) {
				return rids, nil
			}
			rids = append(rids, leaf.entries[pos].rid)
			pos++
		}
		if !leaf.hasRight {
			return rids, nil
		}
		leaf, err = t.readNode(leaf.rightSibling)
		if err != nil {
			return nil, err
		}
		pos = 0
	}
}

// RangeSearch returns every RID whose key lies in [min, max] (inclusive
// on both ends), in key order, ties broken by RID. Either bound may be
// nil for an open range.
func (t *Tree) RangeSearch(min, max *value.Value) ([]value.RID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var leaf *node
	var pos int
	var err error
	if min != nil {
		var path []*node
		path, err = t.findLeaf(*min)
		if err != nil {
			return nil, err
		}
		leaf = path[len(path)-1]
		pos = leafLowerBound(leaf, *min)
	} else {
		leaf, err = t.leftmostLeaf()
		if err != nil {
			return nil, err
		}
		pos = 0
	}

	var rids []value.RID
	for {
		for pos < len(leaf.entries) {
			e := leaf.entries[pos]
			if max != nil && compareKeys(e.key, *max) > 0 {
				return rids, nil
			}
			rids = append(rids, e.rid)
			pos++
		}
		if !leaf.hasRight {
			return rids, nil
		}
		leaf, err = t.readNode(leaf.rightSibling)
		if err != nil {
			return nil, err
		}
		pos = 0
	}
}

func (t *Tree) leftmostLeaf() (*node, error) {
	page := t.root
	for {
		n, err := t.readNode(page)
		if err != nil {
			return nil, err
		}
		if n.isLeaf {
			return n, nil
		}
		page = n.firstChild
	}
}
