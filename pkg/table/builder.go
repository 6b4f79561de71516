package table

// Builder derives a new table from an existing one. The base table is never
// modified; unchanged columns are shared with the result. The result keeps the
// base's row count, even when every column is dropped.
type Builder struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewBuilder starts from the columns of base (which may be nil).
func NewBuilder(base *Table) *Builder {
	b := &Builder{index: make(map[string]int), rows: -1}
	if base != nil {
		b.rows = base.rows
		for _, c := range base.columns {
			b.index[c.Name()] = len(b.columns)
			b.columns = append(b.columns, c)
		}
	}
	return b
}

// Set replaces the column with the same name in place, or appends it.
func (b *Builder) Set(c *Column) *Builder {
	if i, ok := b.index[c.Name()]; ok {
		b.columns[i] = c
		return b
	}
	b.index[c.Name()] = len(b.columns)
	b.columns = append(b.columns, c)
	return b
}

// Drop removes the named column if present.
func (b *Builder) Drop(name string) *Builder {
	i, ok := b.index[name]
	if !ok {
		return b
	}
	b.columns = append(b.columns[:i:i], b.columns[i+1:]...)
	delete(b.index, name)
	for j := i; j < len(b.columns); j++ {
		b.index[b.columns[j].Name()] = j
	}
	return b
}

// Build validates the columns and returns the table.
func (b *Builder) Build() (*Table, error) {
	return newTable(b.rows, b.columns)
}
