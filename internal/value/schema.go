package value

import "strings"

// Column describes one column of a Schema: its name, declared type and,
// for Text columns declared VARCHAR(n), the declared length (0 means
// unbounded).
type Column struct {
	Name       string
	Type       Kind
	Len        int
	PrimaryKey bool
	NotNull    bool
	Unique     bool
}

// Schema is the ordered column list shared by a heap table, an index and
// the tuples flowing through the operator pipeline. Schemas are value
// types: copy rather than mutate shared instances.
type Schema struct {
	Columns []Column
}

func NewSchema(cols ...Column) Schema {
	return Schema{Columns: cols}
}

func (s Schema) Len() int { return len(s.Columns) }

func (s Schema) Column(i int) Column { return s.Columns[i] }

// IndexOf returns the position of the first column matching name
// case-insensitively, or -1 if none matches.
func (s Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Concat returns a new Schema with other's columns appended after s's,
// used to build the output schema of a join.
func (s Schema) Concat(other Schema) Schema {
	cols := make([]Column, 0, len(s.Columns)+len(other.Columns))
	cols = append(cols, s.Columns...)
	cols = append(cols, other.Columns...)
	return Schema{Columns: cols}
}

// Project returns a new Schema containing only the columns at the given
// positions, in the order given — used by the Project operator to build
// its output schema from evaluated expression labels handled elsewhere.
func (s Schema) Project(positions []int) Schema {
	cols := make([]Column, len(positions))
	for i, p := range positions {
		cols[i] = s.Columns[p]
	}
	return Schema{Columns: cols}
}

// PrimaryKeyColumns returns the positions of columns marked PRIMARY KEY,
// in schema order.
func (s Schema) PrimaryKeyColumns() []int {
	var pk []int
	for i, c := range s.Columns {
		if c.PrimaryKey {
			pk = append(pk, i)
		}
	}
	return pk
}
