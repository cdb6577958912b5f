package btree

import (
	"encoding/binary"
	"fmt"

	"quilldb/internal/storage"
	"quilldb/internal/value"
)

// Page header layout, 28 bytes, little-endian:
//
//	0:  magic        uint32
//	4:  version      uint16
//	6:  pageType     uint16  (0 = leaf, 1 = internal)
//	8:  numEntries   uint16
//	10: hasParent    uint8
//	11: _pad         uint8
//	12: parent       uint32
//	16: hasRight     uint8
//	17: _pad[3]
//	20: rightSibling uint32
//	24: firstChild   uint32  (internal pages only)
const (
	magic      = 0x42545245
	version    = 1
	headerSize = 28

	pageTypeLeaf     = 0
	pageTypeInternal = 1
)

func encodeNode(n *node, keyType value.Kind) []byte {
	buf := make([]byte, storage.PageSize)
	binary.LittleEndian.PutUint32(buf[0:], magic)
	binary.LittleEndian.PutUint16(buf[4:], version)
	if n.isLeaf {
		binary.LittleEndian.PutUint16(buf[6:], pageTypeLeaf)
	} else {
		binary.LittleEndian.PutUint16(buf[6:], pageTypeInternal)
	}
	binary.LittleEndian.PutUint16(buf[8:], uint16(len(n.entries)))
	if n.hasParent {
		buf[10] = 1
	}
	binary.LittleEndian.PutUint32(buf[12:], n.parent)
	if n.hasRight {
		buf[16] = 1
	}
	binary.LittleEndian.PutUint32(buf[20:], n.rightSibling)
	binary.LittleEndian.PutUint32(buf[24:], n.firstChild)

	off := headerSize
	for _, e := range n.entries {
		kb := value.EncodeKey(e.key)
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(kb)))
		off += 2
		copy(buf[off:], kb)
		off += len(kb)
		if n.isLeaf {
			binary.LittleEndian.PutUint32(buf[off:], e.rid.Page)
			off += 4
			binary.LittleEndian.PutUint16(buf[off:], e.rid.Slot)
			off += 2
		} else {
			binary.LittleEndian.PutUint32(buf[off:], e.child)
			off += 4
		}
	}
	return buf
}

func decodeNode(page uint32, buf []byte, keyType value.Kind) (*node, error) {
	if binary.LittleEndian.Uint32(buf[0:]) != magic {
		return nil, fmt.Errorf("btree: page %d has bad magic (not an index page, or never written)", page)
	}
	n := &node{page: page}
	pageType := binary.LittleEndian.Uint16(buf[6:])
	n.isLeaf = pageType == pageTypeLeaf
	numEntries := int(binary.LittleEndian.Uint16(buf[8:]))
	n.hasParent = buf[10] != 0
	n.parent = binary.LittleEndian.Uint32(buf[12:])
	n.hasRight = buf[16] != 0
	n.rightSibling = binary.LittleEndian.Uint32(buf[20:])
	n.firstChild = binary.LittleEndian.Uint32(buf[24:])

	off := headerSize
	n.entries = make([]entry, numEntries)
	for i := 0; i < numEntries; i++ {
		klen := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		kb := buf[off : off+klen]
		off += klen
		key, err := value.DecodeKey(kb, keyType)
		if err != nil {
			return nil, fmt.Errorf("btree: page %d entry %d: %w", page, i, err)
		}
		if n.isLeaf {
			rid := value.RID{
				Page: binary.LittleEndian.Uint32(buf[off:]),
				Slot: binary.LittleEndian.Uint16(buf[off+4:]),
			}
			off += 6
			n.entries[i] = entry{key: key, rid: rid}
		} else {
			child := binary.LittleEndian.Uint32(buf[off:])
			off += 4
			n.entries[i] = entry{key: key, child: child}
		}
	}
	return n, nil
}

// entrySize returns the serialized size of one entry for the given key,
// used when deciding whether a node still fits on one page.
func entrySize(isLeaf bool, key value.Value) int {
	kb := value.EncodeKey(key)
	if isLeaf {
		return 2 + len(kb) + 6
	}
	return 2 + len(kb) + 4
}

// nodeSize returns n's total serialized size, header included.
func nodeSize(n *node) int {
	size := headerSize
	for _, e := range n.entries {
		size += entrySize(n.isLeaf, e.key)
	}
	return size
}

func (t *Tree) readNode(page uint32) (*node, error) {
	buf := make([]byte, storage.PageSize)
	if err := t.sm.ReadPage(t.filename, page, buf); err != nil {
		return nil, err
	}
	return decodeNode(page, buf, t.keyType)
}

func (t *Tree) writeNode(n *node) error {
	buf := encodeNode(n, t.keyType)
	return t.sm.WritePage(t.filename, n.page, buf)
}

func (t *Tree) allocatePage() (uint32, error) {
	count, err := t.sm.PageCount(t.filename)
	if err != nil {
		return 0, err
	}
	return count, nil
}
