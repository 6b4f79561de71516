package table

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Common errors
var (
	ErrDuplicateColumn  = errors.New("duplicate column name")
	ErrRowCountMismatch = errors.New("columns have different lengths")
	ErrUnsupportedValue = errors.New("unsupported value type")
	ErrNilColumn        = errors.New("nil column")
)

// Table is an ordered set of uniquely named columns of equal length.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates a table from columns in the given order. The row count is the
// length of the columns; a table without columns has no rows.
func New(columns ...*Column) (*Table, error) {
	return newTable(-1, columns)
}

// newTable builds a table holding rows rows. A negative rows takes the count from
// the first column, so a table keeps its row count when every column is dropped.
func newTable(rows int, columns []*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    rows,
	}
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("%w at position %d", ErrNilColumn, i)
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name())
		}
		if t.rows < 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrRowCountMismatch, c.Name(), c.Len(), t.rows)
		}
		t.index[c.Name()] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	if t.rows < 0 {
		t.rows = 0
	}
	return t, nil
}

// MustNew is like New but panics on error.
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.columns) }

// Shape returns [rows, columns].
func (t *Table) Shape() []int { return []int{t.rows, len(t.columns)} }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; columns are immutable.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether the table has a column with this name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnsOfKind returns the names of the columns of kind k, in table order.
func (t *Table) ColumnsOfKind(k Kind) []string {
	var names []string
	for _, c := range t.columns {
		if c.Kind() == k {
			names = append(names, c.Name())
		}
	}
	return names
}

// MissingCount returns the number of missing cells across all columns.
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.columns {
		n += c.MissingCount()
	}
	return n
}

// CompleteRows returns the indices of rows without any missing value.
func (t *Table) CompleteRows() []int {
	rows := make([]int, 0, t.rows)
	for r := range t.rows {
		complete := true
		for _, c := range t.columns {
			if c.IsMissing(r) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}
	return rows
}

// Take returns a table holding the given rows of every column.
func (t *Table) Take(rows []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Take(rows)
	}
	out, err := newTable(len(rows), cols)
	if err != nil {
		panic(err)
	}
	return out
}

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	b := NewBuilder(t)
	for _, n := range names {
		b.Drop(n)
	}
	out, _ := b.Build()
	return out
}

// Equal reports whether both tables have equal columns in the same order.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.columns) != len(o.columns) || t.rows != o.rows {
		return false
	}
	for i, c := range t.columns {
		if !c.Equal(o.columns[i]) {
			return false
		}
	}
	return true
}

// Records returns one map per row, keyed by column name. Missing values are nil.
func (t *Table) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, t.rows)
	for r := range t.rows {
		rec := make(map[string]interface{}, len(t.columns))
		for _, c := range t.columns {
			rec[c.Name()] = c.Value(r)
		}
		records[r] = rec
	}
	return records
}

// String renders the table as aligned text, missing values shown as NaN.
func (t *Table) String() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.ColumnNames(), "\t"))
	for r := range t.rows {
		cells := make([]string, len(t.columns))
		for i, c := range t.columns {
			if c.IsMissing(r) {
				cells[i] = "NaN"
			} else {
				cells[i] = c.Str(r)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	return sb.String()
}
