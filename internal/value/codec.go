package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// EncodeField appends v's on-disk representation to buf and returns the
// extended slice. The encoding is self-describing only in length, not in
// type: the caller's Schema supplies the Kind needed to decode it again.
// Every field starts with a null flag byte. A NULL of any kind is the
// flag byte alone. A non-null fixed-width kind (Bool, Int32, Int64,
// Float64, Date, Timestamp) follows it with a constant number of bytes;
// a non-null variable-width kind (Text, Bytes) is length-prefixed.
func EncodeField(buf []byte, v Value) []byte {
	buf = append(buf, boolToByte(v.IsNull()))
	if v.IsNull() {
		v = zeroValueOfKind(v.kind)
	}
	switch v.kind {
	case Null:
		// Every NULL reaches here: a NULL Value carries no declared
		// kind, so only the null flag is written.
		return buf
	case Bool:
		return append(buf, boolToByte(v.Bool()))
	case Int32:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(v.Int32()))
		return append(buf, tmp[:]...)
	case Int64:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v.i))
		return append(buf, tmp[:]...)
	case Float64:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.f))
		return append(buf, tmp[:]...)
	case Text:
		return appendLenPrefixed(buf, []byte(v.s))
	case Bytes:
		return appendLenPrefixed(buf, v.bs)
	case Date, Timestamp:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v.t.UnixNano()))
		return append(buf, tmp[:]...)
	default:
		return buf
	}
}

func appendLenPrefixed(buf, data []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, data...)
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func zeroValueOfKind(k Kind) Value {
	switch k {
	case Bool:
		return NewBool(false)
	case Int32:
		return NewInt32(0)
	case Int64:
		return NewInt64(0)
	case Float64:
		return NewFloat64(0)
	case Text:
		return NewText("")
	case Bytes:
		return NewBytes(nil)
	case Date, Timestamp:
		return NewTimestamp(time.Unix(0, 0).UTC())
	default:
		return NewNull()
	}
}

// DecodeField reads one field of the given declared Kind from buf at
// offset off, returning the decoded Value and the offset just past it.
func DecodeField(buf []byte, off int, kind Kind) (Value, int, error) {
	if off >= len(buf) {
		return Value{}, off, fmt.Errorf("value: DecodeField: truncated buffer at offset %d", off)
	}
	isNull := buf[off] != 0
	off++
	if isNull {
		// EncodeField writes no payload after a set null flag.
		return NewNull(), off, nil
	}
	switch kind {
	case Bool:
		if off >= len(buf) {
			return Value{}, off, fmt.Errorf("value: DecodeField: truncated bool")
		}
		return NewBool(buf[off] != 0), off + 1, nil
	case Int32:
		if off+4 > len(buf) {
			return Value{}, off, fmt.Errorf("value: DecodeField: truncated int32")
		}
		return NewInt32(int32(binary.LittleEndian.Uint32(buf[off : off+4]))), off + 4, nil
	case Int64:
		if off+8 > len(buf) {
			return Value{}, off, fmt.Errorf("value: DecodeField: truncated int64")
		}
		return NewInt64(int64(binary.LittleEndian.Uint64(buf[off : off+8]))), off + 8, nil
	case Float64:
		if off+8 > len(buf) {
			return Value{}, off, fmt.Errorf("value: DecodeField: truncated float64")
		}
		bits := binary.LittleEndian.Uint64(buf[off : off+8])
		return NewFloat64(math.Float64frombits(bits)), off + 8, nil
	case Text:
		data, next, err := readLenPrefixed(buf, off)
		if err != nil {
			return Value{}, off, err
		}
		return NewText(string(data)), next, nil
	case Bytes:
		data, next, err := readLenPrefixed(buf, off)
		if err != nil {
			return Value{}, off, err
		}
		return NewBytes(data), next, nil
	case Date, Timestamp:
		if off+8 > len(buf) {
			return Value{}, off, fmt.Errorf("value: DecodeField: truncated timestamp")
		}
		nanos := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		t := time.Unix(0, nanos).UTC()
		if kind == Date {
			return NewDate(t), off + 8, nil
		}
		return NewTimestamp(t), off + 8, nil
	default:
		return Value{}, off, fmt.Errorf("value: DecodeField: unsupported kind %s", kind)
	}
}

func skipField(buf []byte, off int, kind Kind) (int, error) {
	switch kind {
	case Bool:
		return off + 1, nil
	case Int32:
		return off + 4, nil
	case Int64, Float64, Date, Timestamp:
		return off + 8, nil
	case Text, Bytes:
		_, next, err := readLenPrefixed(buf, off)
		return next, err
	default:
		return off, fmt.Errorf("value: skipField: unsupported kind %s", kind)
	}
}

func readLenPrefixed(buf []byte, off int) ([]byte, int, error) {
	if off+4 > len(buf) {
		return nil, off, fmt.Errorf("value: readLenPrefixed: truncated length")
	}
	n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	if off+n > len(buf) {
		return nil, off, fmt.Errorf("value: readLenPrefixed: truncated payload")
	}
	return buf[off : off+n], off + n, nil
}

// EncodeKey renders v as a byte string suitable for use as a B+-tree key:
// fixed-width numeric kinds are encoded big-endian with a sign-flip so
// that byte-lexicographic order matches numeric order; variable-width
// kinds are encoded as-is (Text/Bytes already compare lexicographically).
func EncodeKey(v Value) []byte {
	switch v.kind {
	case Int32:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(v.Int32())^0x80000000)
		return tmp[:]
	case Int64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.i)^0x8000000000000000)
		return tmp[:]
	case Float64:
		bits := math.Float64bits(v.f)
		if v.f < 0 {
			bits = ^bits
		} else {
			bits |= 0x8000000000000000
		}
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], bits)
		return tmp[:]
	case Bool:
		return []byte{boolToByte(v.Bool())}
	case Text:
		return []byte(v.s)
	case Bytes:
		return v.bs
	case Date, Timestamp:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.t.UnixNano())^0x8000000000000000)
		return tmp[:]
	default:
		return nil
	}
}

// DecodeKey reverses EncodeKey for the given Kind.
func DecodeKey(buf []byte, kind Kind) (Value, error) {
	switch kind {
	case Int32:
		if len(buf) != 4 {
			return Value{}, fmt.Errorf("value: DecodeKey: want 4 bytes for INT, got %d", len(buf))
		}
		return NewInt32(int32(binary.BigEndian.Uint32(buf) ^ 0x80000000)), nil
	case Int64:
		if len(buf) != 8 {
			return Value{}, fmt.Errorf("value: DecodeKey: want 8 bytes for BIGINT, got %d", len(buf))
		}
		return NewInt64(int64(binary.BigEndian.Uint64(buf) ^ 0x8000000000000000)), nil
	case Float64:
		if len(buf) != 8 {
			return Value{}, fmt.Errorf("value: DecodeKey: want 8 bytes for FLOAT, got %d", len(buf))
		}
		bits := binary.BigEndian.Uint64(buf)
		if bits&0x8000000000000000 != 0 {
			bits &^= 0x8000000000000000
		} else {
			bits = ^bits
		}
		return NewFloat64(math.Float64frombits(bits)), nil
	case Bool:
		if len(buf) != 1 {
			return Value{}, fmt.Errorf("value: DecodeKey: want 1 byte for BOOL, got %d", len(buf))
		}
		return NewBool(buf[0] != 0), nil
	case Text:
		return NewText(string(buf)), nil
	case Bytes:
		return NewBytes(buf), nil
	case Date, Timestamp:
		if len(buf) != 8 {
			return Value{}, fmt.Errorf("value: DecodeKey: want 8 bytes for timestamp, got %d", len(buf))
		}
		nanos := int64(binary.BigEndian.Uint64(buf) ^ 0x8000000000000000)
		t := time.Unix(0, nanos).UTC()
		if kind == Date {
			return NewDate(t), nil
		}
		return NewTimestamp(t), nil
	default:
		return Value{}, fmt.Errorf("value: DecodeKey: unsupported kind %s", kind)
	}
}
