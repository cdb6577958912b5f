package value

// Tuple is a single row's worth of Values, positionally aligned with a
// Schema. Tuple carries no schema reference of its own — callers pass the
// owning Schema alongside it, the same way a database cursor pairs rows
// with a result descriptor.
type Tuple struct {
	Values []Value
}

func NewTuple(values ...Value) Tuple {
	return Tuple{Values: values}
}

func (t Tuple) Len() int { return len(t.Values) }

func (t Tuple) At(i int) Value {
	if i < 0 || i >= len(t.Values) {
		return NewNull()
	}
	return t.Values[i]
}

// Clone returns a deep-enough copy of t; Value itself is immutable aside
// from the Bytes slice, which Clone duplicates.
func (t Tuple) Clone() Tuple {
	out := make([]Value, len(t.Values))
	for i, v := range t.Values {
		if v.kind == Bytes {
			out[i] = NewBytes(v.bs)
		} else {
			out[i] = v
		}
	}
	return Tuple{Values: out}
}

// Concat returns a new Tuple with other's values appended after t's,
// mirroring Schema.Concat for join output rows.
func (t Tuple) Concat(other Tuple) Tuple {
	out := make([]Value, 0, len(t.Values)+len(other.Values))
	out = append(out, t.Values...)
	out = append(out, other.Values...)
	return Tuple{Values: out}
}

// Project returns a new Tuple containing only the values at the given
// positions, in the order given.
func (t Tuple) Project(positions []int) Tuple {
	out := make([]Value, len(positions))
	for i, p := range positions {
		out[i] = t.At(p)
	}
	return Tuple{Values: out}
}
