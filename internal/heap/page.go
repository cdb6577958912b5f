// Package heap implements the Heap Table: an unordered, slotted-page
// tuple store on top of the Storage Manager. Each table owns one file;
// each page is a header, a slot directory growing forward from just past
// the header, and a payload region growing backward from the end of the
// page, matching the teacher's disk_manager/heapfile_manager layout.
package heap

import (
	"encoding/binary"

	"quilldb/internal/storage"
)

// Page header layout, all little-endian:
//
//	offset 0: freeSpaceOffset uint16  -- start of the lowest payload; the next payload ends here
//	offset 2: numSlots       uint16  -- number of slots in the slot directory (live + tombstoned)
//	offset 4: flags          uint16  -- reserved for future page-type tagging
//	offset 6: reserved       uint16
//
// The slot directory occupies [headerSize, headerSize+numSlots*slotSize)
// and grows forward as slots are appended; each slot is (offset, length)
// uint16 pairs, with offset == 0 meaning a tombstoned (deleted) slot.
// Tuple payloads are packed from the end of the page backward, so the
// free region lies between the slot directory and the lowest-addressed
// payload.
const (
	headerSize = 8
	slotSize   = 4

	offFreeSpace = 0
	offNumSlots  = 2
)

type slot struct {
	offset uint16 // 0 means tombstoned
	length uint16
}

func initPage(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint16(buf[offFreeSpace:], storage.PageSize)
	binary.LittleEndian.PutUint16(buf[offNumSlots:], 0)
}

func getFreeSpaceOffset(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf[offFreeSpace:])
}

func setFreeSpaceOffset(buf []byte, v uint16) {
	binary.LittleEndian.PutUint16(buf[offFreeSpace:], v)
}

func getNumSlots(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf[offNumSlots:])
}

func setNumSlots(buf []byte, v uint16) {
	binary.LittleEndian.PutUint16(buf[offNumSlots:], v)
}

func slotDirOffset(i uint16) int {
	return headerSize + int(i)*slotSize
}

func getSlot(buf []byte, i uint16) slot {
	off := slotDirOffset(i)
	return slot{
		offset: binary.LittleEndian.Uint16(buf[off:]),
		length: binary.LittleEndian.Uint16(buf[off+2:]),
	}
}

func setSlot(buf []byte, i uint16, s slot) {
	off := slotDirOffset(i)
	binary.LittleEndian.PutUint16(buf[off:], s.offset)
	binary.LittleEndian.PutUint16(buf[off+2:], s.length)
}

// freeBytes reports how many contiguous bytes remain between the end of
// the slot directory and the start of the lowest-addressed payload,
// accounting for the slot this insert would need to add (if grow is
// true, one more slot than currently exist).
func freeBytes(buf []byte, growSlots bool) int {
	numSlots := getNumSlots(buf)
	dirEnd := slotDirOffset(numSlots)
	if growSlots {
		dirEnd += slotSize
	}
	return int(getFreeSpaceOffset(buf)) - dirEnd
}

// canFit reports whether a payload of the given length can be inserted
// into a fresh slot without growing the page past its boundaries.
func canFit(buf []byte, payloadLen int) bool {
	return freeBytes(buf, true) >= payloadLen
}
