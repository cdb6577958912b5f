package heap

import (
	"fmt"

	"quilldb/internal/value"
)

// serializeTuple encodes tup against schema into the per-field encoding
// defined by the value package. The schema's column order and kinds are
// the only thing that make the encoding meaningful again on read-back —
// the heap file stores no type tags of its own.
func serializeTuple(schema value.Schema, tup value.Tuple) ([]byte, error) {
	if tup.Len() != schema.Len() {
		return nil, fmt.Errorf("heap: tuple has %d values, schema has %d columns", tup.Len(), schema.Len())
	}
	var buf []byte
	for i, col := range schema.Columns {
		v, err := value.CoerceTo(tup.At(i), col.Type)
		if err != nil {
			return nil, fmt.Errorf("heap: column %q: %w", col.Name, err)
		}
		buf = value.EncodeField(buf, v)
	}
	return buf, nil
}

func deserializeTuple(schema value.Schema, buf []byte) (value.Tuple, error) {
	values := make([]value.Value, schema.Len())
	off := 0
	for i, col := range schema.Columns {
		v, next, err := value.DecodeField(buf, off, col.Type)
		if err != nil {
			return value.Tuple{}, fmt.Errorf("heap: column %q: %w", col.Name, err)
		}
		values[i] = v
		off = next
	}
	return value.Tuple{Values: values}, nil
}
