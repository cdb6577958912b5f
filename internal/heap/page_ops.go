package heap

import (
	"fmt"
)

// insertIntoPage always appends a fresh slot directory entry and payload
// region; a page's slot index is never reassigned, even when earlier
// slots are tombstoned, so an RID stays a permanent identifier for the
// tuple it was issued for. It assumes the caller has already verified
// canFit(buf, len(payload)). Returns the new slot index.
func insertIntoPage(buf []byte, payload []byte) (uint16, error) {
	if !canFit(buf, len(payload)) {
		return 0, fmt.Errorf("heap: page has no room for a %d-byte payload", len(payload))
	}
	numSlots := getNumSlots(buf)
	newOffset := getFreeSpaceOffset(buf) - uint16(len(payload))
	writePayload(buf, newOffset, payload)
	setSlot(buf, numSlots, slot{offset: newOffset, length: uint16(len(payload))})
	setNumSlots(buf, numSlots+1)
	setFreeSpaceOffset(buf, newOffset)
	return numSlots, nil
}

func writePayload(buf []byte, offset uint16, payload []byte) {
	copy(buf[offset:int(offset)+len(payload)], payload)
}

// getFromPage returns the payload bytes stored at slot i, or ok=false if
// the slot index is out of range or tombstoned.
func getFromPage(buf []byte, i uint16) ([]byte, bool) {
	if i >= getNumSlots(buf) {
		return nil, false
	}
	s := getSlot(buf, i)
	if s.offset == 0 {
		return nil, false
	}
	out := make([]byte, s.length)
	copy(out, buf[s.offset:int(s.offset)+int(s.length)])
	return out, true
}

// deleteFromPage tombstones slot i (offset set to 0) without compacting
// the payload region; the length field is left as it was. The slot is
// never reused, since insertIntoPage always appends. Returns false if the
// slot was already tombstoned or out of range.
func deleteFromPage(buf []byte, i uint16) bool {
	if i >= getNumSlots(buf) {
		return false
	}
	s := getSlot(buf, i)
	if s.offset == 0 {
		return false
	}
	setSlot(buf, i, slot{offset: 0, length: s.length})
	return true
}
